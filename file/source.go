package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/json"
	"github.com/pkg/errors"
)

// Source is a musiclake.Source which reads json objects from files on disk.
// Files are decoded on a separate goroutine, a little ahead of the caller.
type Source struct {
	rawSource *RawSource
	records   chan record
	originAt  string

	done      chan struct{}
	closeOnce sync.Once
}

// SrcOption is a functional option for the file Source.
type SrcOption func(s *Source) error

// OptSrcOriginAt stores <filename>#<record number> under key in every record.
func OptSrcOriginAt(key string) SrcOption {
	return func(s *Source) error {
		s.originAt = key
		return nil
	}
}

// OptSrcPath sets the file, directory or glob pattern to use for source data.
func OptSrcPath(pathname string) SrcOption {
	return func(s *Source) (err error) {
		s.rawSource, err = NewRawSource(pathname)
		if err != nil {
			return errors.Wrap(err, "getting raw source")
		}
		return nil
	}
}

// send hands r to Record, or reports false once the source is closed.
func (s *Source) send(r record) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.records <- r:
		return true
	case <-s.done:
		return false
	}
}

func (s *Source) run() {
	defer close(s.records)
	reader, err := s.rawSource.NextReader()
	for ; err == nil; reader, err = s.rawSource.NextReader() {
		src := json.NewSource(reader)
		for i := 0; true; i++ {
			r := record{}
			r.data, r.err = src.Record()
			if r.err == io.EOF {
				break
			}
			if r.err != nil {
				reader.Close()
				s.send(record{err: errors.Wrapf(r.err, "decoding json from %s", reader.Name())})
				return
			}
			if obj, ok := r.data.(map[string]interface{}); ok && s.originAt != "" {
				obj[s.originAt] = fmt.Sprintf("%s#%d", reader.Name(), i)
			}
			if !s.send(r) {
				reader.Close()
				return
			}
		}
		if err := reader.Close(); err != nil {
			s.send(record{err: errors.Wrapf(err, "closing %s", reader.Name())})
			return
		}
	}
	if err != io.EOF {
		s.send(record{err: errors.Wrap(err, "getting next reader")})
	}
}

// NewSource gets a new file source which will read json data from a file, all
// files under a directory, or all files matching a glob pattern.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{
		records: make(chan record, 100),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	if s.rawSource == nil {
		return nil, errors.New("no path given for file source")
	}
	go s.run()
	return s, nil
}

// Record implements musiclake.Source returning a map[string]interface{} for
// each json object in the source files.
func (s *Source) Record() (interface{}, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.data, rec.err
}

// Close stops reading ahead and releases the file being read. Record
// returns io.EOF once the records already read are drained.
func (s *Source) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

type record struct {
	data interface{}
	err  error
}

// RawSource is a musiclake.RawSource over local files, handed out in lexical
// order.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource lists the files named by pathname. A pattern containing glob
// metacharacters is expanded with filepath.Glob, a directory is walked
// recursively, and anything else is taken as a single file. A pattern
// matching nothing yields an empty source.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	if strings.ContainsAny(pathname, "*?[") {
		matches, err := filepath.Glob(pathname)
		if err != nil {
			return nil, errors.Wrapf(err, "expanding '%s'", pathname)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, errors.Wrap(err, "statting match")
			}
			if !info.IsDir() {
				s.files = append(s.files, m)
			}
		}
		sort.Strings(s.files)
		return s, nil
	}

	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if !info.IsDir() {
		s.files = []string{pathname}
		return s, nil
	}
	err = filepath.Walk(pathname, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			s.files = append(s.files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking directory")
	}
	sort.Strings(s.files)
	return s, nil
}

// Files returns the paths the source will read.
func (s *RawSource) Files() []string {
	return s.files
}

// NextReader implements musiclake.RawSource. It is safe for concurrent use.
func (s *RawSource) NextReader() (musiclake.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if idx >= uint64(len(s.files)) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return file, nil
}
