package file

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Store is a musiclake.Store rooted at a local directory. Keys map to paths
// below Root.
type Store struct {
	Root string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path.Clean("/" + key)))
}

// Put writes data to a temporary file next to key and renames it into place,
// so readers never see a partial object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "making directory")
	}
	f, err := os.CreateTemp(filepath.Dir(p), ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return errors.Wrapf(err, "writing %s", f.Name())
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "closing %s", f.Name())
	}
	if err := os.Rename(f.Name(), p); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "renaming into %s", p)
	}
	return nil
}

// Get opens the file at key.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	return f, nil
}

// List walks the directory holding prefix and returns every key starting
// with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	dir := s.Root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = s.path(prefix[:i])
	}
	var keys []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if os.IsNotExist(err) {
			return nil
		} else if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", prefix)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeletePrefix removes every file under prefix. A prefix ending in a slash
// is removed as a whole directory.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if strings.HasSuffix(prefix, "/") {
		if err := os.RemoveAll(s.path(prefix)); err != nil {
			return errors.Wrapf(err, "removing %s", prefix)
		}
		return nil
	}
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := os.Remove(s.path(k)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", k)
		}
	}
	return nil
}
