package file

import (
	"context"
	"io"
	"testing"

	"github.com/pilosa/musiclake/test"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	keys, err := s.List(ctx, "songs/")
	test.ErrNil(t, err, "listing empty store")
	test.MustBe(t, 0, len(keys))

	for _, k := range []string{"songs/year=1997/part-00000.parquet", "songs/_SUCCESS", "artists/_SUCCESS", "songsx/_SUCCESS"} {
		test.ErrNil(t, s.Put(ctx, k, []byte(k)), "put "+k)
	}
	test.ErrNil(t, s.Put(ctx, "songs/_SUCCESS", []byte("again")), "overwrite")

	keys, err = s.List(ctx, "songs/")
	test.ErrNil(t, err, "List")
	test.MustBe(t, []string{"songs/_SUCCESS", "songs/year=1997/part-00000.parquet"}, keys)

	r, err := s.Get(ctx, "songs/_SUCCESS")
	test.ErrNil(t, err, "Get")
	data, err := io.ReadAll(r)
	test.ErrNil(t, err, "reading")
	r.Close()
	test.MustBe(t, "again", string(data))

	test.ErrNil(t, s.DeletePrefix(ctx, "songs/"), "DeletePrefix")
	keys, err = s.List(ctx, "")
	test.ErrNil(t, err, "List all")
	test.MustBe(t, []string{"artists/_SUCCESS", "songsx/_SUCCESS"}, keys)

	test.ErrNil(t, s.DeletePrefix(ctx, "nothing/"), "deleting nothing")

	if _, err := s.Get(ctx, "songs/_SUCCESS"); err == nil {
		t.Fatal("expected error getting deleted key")
	}
}
