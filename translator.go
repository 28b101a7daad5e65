package musiclake

import (
	"sync"

	"github.com/pkg/errors"
)

// Translator maps values in a named frame to dense integer ids and back. Ids
// within a frame start at zero and are handed out in the order values are
// first seen. Implementations must be safe for concurrent use.
//
// Values are byte slices or anything usable as a map key; persistent
// implementations accept only byte slices.
type Translator interface {
	Get(frame string, id uint64) (interface{}, error)
	GetID(frame string, val interface{}) (uint64, error)
}

// MapTranslator is an in-memory Translator. Its ids only live as long as the
// process, so a song gets the same id everywhere within one run but not
// across runs.
type MapTranslator struct {
	mu     sync.RWMutex
	frames map[string]*mapFrame
}

type mapFrame struct {
	ids  map[interface{}]uint64
	vals []interface{}
}

// NewMapTranslator creates a new MapTranslator.
func NewMapTranslator() *MapTranslator {
	return &MapTranslator{frames: make(map[string]*mapFrame)}
}

// mapKey returns a comparable form of val. Byte slices are keyed by their
// string form and stored as given.
func mapKey(val interface{}) interface{} {
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}

// Get returns the value mapped to id in frame.
func (m *MapTranslator) Get(frame string, id uint64) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.frames[frame]
	if !ok || id >= uint64(len(f.vals)) {
		return nil, errors.Errorf("frame '%s' has no id %d", frame, id)
	}
	return f.vals[id], nil
}

// GetID returns the id of val in frame, allocating the next one if val has
// not been seen before.
func (m *MapTranslator) GetID(frame string, val interface{}) (uint64, error) {
	key := mapKey(val)
	m.mu.RLock()
	if f, ok := m.frames[frame]; ok {
		if id, ok := f.ids[key]; ok {
			m.mu.RUnlock()
			return id, nil
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[frame]
	if !ok {
		f = &mapFrame{ids: make(map[interface{}]uint64)}
		m.frames[frame] = f
	}
	if id, ok := f.ids[key]; ok {
		return id, nil
	}
	id := uint64(len(f.vals))
	f.vals = append(f.vals, val)
	f.ids[key] = id
	return id, nil
}
