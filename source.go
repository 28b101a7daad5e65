package musiclake

import (
	"io"
	"sync"
)

// Source is the interface for getting raw data one record at a time. Record
// returns io.EOF once the source is exhausted. JSON backed sources return a
// map[string]interface{} per object with numbers left as json.Number so that
// the schema catalog can coerce them exactly.
type Source interface {
	Record() (interface{}, error)
}

// NamedReadCloser is an io.ReadCloser which knows the name of the object it
// is reading, typically a file path or an object key.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource hands out one reader per input object and returns io.EOF when
// there are no more. Implementations return objects in lexical name order so
// that runs over unchanged inputs see records in the same order.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// SliceSource is a Source over records held in memory.
type SliceSource struct {
	mu   sync.Mutex
	recs []interface{}
}

// NewSliceSource returns a Source which yields recs in order.
func NewSliceSource(recs ...interface{}) *SliceSource {
	return &SliceSource{recs: recs}
}

// Record implements Source.
func (s *SliceSource) Record() (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recs) == 0 {
		return nil, io.EOF
	}
	rec := s.recs[0]
	s.recs = s.recs[1:]
	return rec, nil
}
