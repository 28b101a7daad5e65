package musiclake_test

import (
	"testing"

	"github.com/pilosa/musiclake"
)

func TestLocalRangeAllocator(t *testing.T) {
	a := musiclake.NewLocalRangeAllocator(1 << 16)
	r1, err := a.Get()
	if err != nil {
		t.Fatalf("getting range: %v", err)
	}
	r2, err := a.Get()
	if err != nil {
		t.Fatalf("getting range: %v", err)
	}
	if r1.Start != 0 || r1.End != 1<<16 || r2.Start != 1<<16 || r2.End != 2<<16 {
		t.Fatalf("unexpected ranges %v %v", r1, r2)
	}

	r1.Start = 10
	if err := a.Return(r1); err != nil {
		t.Fatalf("returning range: %v", err)
	}
	r3, err := a.Get()
	if err != nil {
		t.Fatalf("getting range: %v", err)
	}
	if r3.Start != 10 {
		t.Fatalf("expected returned range to be reused, got %v", r3)
	}
}

func TestRangeNexter(t *testing.T) {
	a := musiclake.NewLocalRangeAllocator(1 << 16)
	n1, err := musiclake.NewRangeNexter(a)
	if err != nil {
		t.Fatalf("getting nexter: %v", err)
	}
	n2, err := musiclake.NewRangeNexter(a)
	if err != nil {
		t.Fatalf("getting nexter: %v", err)
	}
	for i := uint64(0); i < 3; i++ {
		id, err := n1.Next()
		if err != nil || id != i {
			t.Fatalf("n1 expected %d, got %d (%v)", i, id, err)
		}
		id, err = n2.Next()
		if err != nil || id != 1<<16+i {
			t.Fatalf("n2 expected %d, got %d (%v)", 1<<16+i, id, err)
		}
	}
}

func TestNewLocalRangeAllocatorBadWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non power of two width")
		}
	}()
	musiclake.NewLocalRangeAllocator(1<<16 + 1)
}

func TestLocalRangeAllocatorExhausted(t *testing.T) {
	a := musiclake.NewLocalRangeAllocator(1 << 62)
	for i := 0; i < 2; i++ {
		if _, err := a.Get(); err != nil {
			t.Fatalf("getting range %d: %v", i, err)
		}
	}
	if _, err := a.Get(); err != musiclake.ErrRangesExhausted {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestRangeNexterReturn(t *testing.T) {
	a := musiclake.NewLocalRangeAllocator(1 << 16)
	n, err := musiclake.NewRangeNexter(a)
	if err != nil {
		t.Fatalf("getting nexter: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := n.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if err := n.Return(); err != nil {
		t.Fatalf("returning: %v", err)
	}
	r, err := a.Get()
	if err != nil {
		t.Fatalf("getting range: %v", err)
	}
	if r.Start != 5 || r.Len() != 1<<16-5 {
		t.Fatalf("expected the rest of the first range, got %v", r)
	}
	if err := a.Return(&musiclake.IDRange{Start: 9, End: 3}); err == nil {
		t.Fatalf("expected error returning an inverted range")
	}
}
