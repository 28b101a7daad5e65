package musiclake_test

import (
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/test"
)

func TestMapTranslator(t *testing.T) {
	mt := musiclake.NewMapTranslator()
	id, err := mt.GetID("frame1", "thing")
	test.MustBe(t, uint64(0), id, "first")
	test.ErrNil(t, err, "first")
	id, err = mt.GetID("frame1", "thing")
	test.MustBe(t, uint64(0), id, "repeat")
	test.ErrNil(t, err, "repeat")

	id, err = mt.GetID("frame1", "thing1")
	test.MustBe(t, uint64(1), id, "third")
	test.ErrNil(t, err, "third")

	id, err = mt.GetID("frame2", []byte("thing3"))
	test.MustBe(t, uint64(0), id, "fourth")
	test.ErrNil(t, err, "fourth")

	val, err := mt.Get("frame1", 0)
	test.ErrNil(t, err, "Get1-0")
	test.MustBe(t, "thing", val, "Get1-0")
	val, err = mt.Get("frame1", 1)
	test.ErrNil(t, err, "Get1-1")
	test.MustBe(t, "thing1", val, "Get1-1")
	val, err = mt.Get("frame2", 0)
	test.ErrNil(t, err, "Get2-0")
	test.MustBe(t, []byte("thing3"), val, "Get2-0")

	if _, err := mt.Get("frame1", 2); err == nil {
		t.Fatal("expected error getting unknown id")
	}
}

func TestConcMapTranslator(t *testing.T) {
	mt := musiclake.NewMapTranslator()

	wg := &sync.WaitGroup{}
	rets := make([][]uint64, 8)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		rets[i] = make([]uint64, 1000)
		wg.Add(1)
		go func(ret []uint64) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				id, err := mt.GetID("f1", []byte(strconv.Itoa(j)))
				if err != nil {
					errs <- err
					return
				}
				ret[j] = id
			}
		}(rets[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("error getting id: %v", err)
	}

	for i, ret := range rets {
		if i != 0 && !reflect.DeepEqual(ret, rets[i-1]) {
			t.Fatalf("returned ids different in different goroutines: %v, %v", ret, rets[i-1])
		}
	}
	ids := append([]uint64(nil), rets[0]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for j := 0; j < 1000; j++ {
		if ids[j] != uint64(j) {
			t.Fatalf("returned ids are not dense, pos: %v, val: %v", j, ids[j])
		}
	}
}
