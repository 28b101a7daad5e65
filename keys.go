package musiclake

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/pkg/errors"
)

// KeyAssigner hands out one surrogate key per row of a table. Keys are
// unique within a call. Whether they are contiguous or stable across runs
// depends on the implementation.
type KeyAssigner interface {
	Keys(t *Table) ([]int64, error)
}

// SequentialKeys numbers rows with a single counter shared by every call, so
// keys are contiguous and unique for the life of the assigner.
type SequentialKeys struct {
	n *Nexter
}

// NewSequentialKeys returns a SequentialKeys counting from zero.
func NewSequentialKeys(opts ...NexterOption) *SequentialKeys {
	return &SequentialKeys{n: NewNexter(opts...)}
}

// Keys implements KeyAssigner.
func (s *SequentialKeys) Keys(t *Table) ([]int64, error) {
	keys := make([]int64, t.Len())
	for i := range keys {
		id := s.n.Next()
		if id > math.MaxInt64 {
			return nil, errors.Errorf("key counter overflowed at %d", id)
		}
		keys[i] = int64(id)
	}
	return keys, nil
}

// DefaultRangeWidth is the width of the id range drawn for each execution
// unit by RangeKeys. It leaves the upper bits of a key for the unit number.
const DefaultRangeWidth = 1 << 33

// RangeKeys splits rows into execution units of UnitSize rows and numbers
// each unit from its own range of the Allocator. Keys are unique but leave
// gaps between units.
type RangeKeys struct {
	Allocator RangeAllocator
	UnitSize  int
}

// NewRangeKeys returns RangeKeys over a LocalRangeAllocator of
// DefaultRangeWidth wide ranges.
func NewRangeKeys(unitSize int) *RangeKeys {
	return &RangeKeys{
		Allocator: NewLocalRangeAllocator(DefaultRangeWidth),
		UnitSize:  unitSize,
	}
}

// Keys implements KeyAssigner.
func (r *RangeKeys) Keys(t *Table) ([]int64, error) {
	if r.UnitSize <= 0 {
		return nil, errors.Errorf("invalid unit size %d", r.UnitSize)
	}
	keys := make([]int64, t.Len())
	for start := 0; start < len(keys); start += r.UnitSize {
		n, err := NewRangeNexter(r.Allocator)
		if err != nil {
			return nil, errors.Wrapf(err, "starting unit at row %d", start)
		}
		end := start + r.UnitSize
		if end > len(keys) {
			end = len(keys)
		}
		for i := start; i < end; i++ {
			id, err := n.Next()
			if err != nil {
				return nil, errors.Wrapf(err, "getting key for row %d", i)
			}
			if id > math.MaxInt64 {
				return nil, errors.Errorf("key range overflowed at %d", id)
			}
			keys[i] = int64(id)
		}
	}
	return keys, nil
}

// DefaultHashColumns are the fact columns which identify a song play.
var DefaultHashColumns = []string{"start_time", "user_id", "session_id", "song_id", "artist_id"}

// HashKeys derives each key from the content of its row: the FNV-64a hash of
// Columns truncated to 63 bits. A row which collides with an earlier one is
// rehashed with an increasing salt, so identical input in identical order
// always yields identical keys.
type HashKeys struct {
	Columns []string
}

// Keys implements KeyAssigner.
func (h *HashKeys) Keys(t *Table) ([]int64, error) {
	cols := h.Columns
	if len(cols) == 0 {
		cols = DefaultHashColumns
	}
	idxs := make([]int, len(cols))
	for i, name := range cols {
		if idxs[i] = t.schema.Index(name); idxs[i] < 0 {
			return nil, errors.Wrapf(ErrUnknownColumn, "hashing '%s'", name)
		}
	}

	keys := make([]int64, t.Len())
	used := make(map[int64]struct{}, len(keys))
	var buf []byte
	for i, r := range t.rows {
		buf = buf[:0]
		for _, idx := range idxs {
			buf = appendKey(buf, r[idx])
		}
		base := len(buf)
		for salt := uint64(0); ; salt++ {
			buf = binary.BigEndian.AppendUint64(buf[:base], salt)
			hsh := fnv.New64a()
			hsh.Write(buf)
			key := int64(hsh.Sum64() & math.MaxInt64)
			if _, ok := used[key]; !ok {
				used[key] = struct{}{}
				keys[i] = key
				break
			}
		}
	}
	return keys, nil
}
