package musiclake

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
)

// ErrRangesExhausted is returned by a RangeAllocator with no ids left that
// fit in a Long column.
var ErrRangesExhausted = errors.New("id ranges exhausted")

// RangeAllocator hands out disjoint ranges of ids, one per execution unit.
type RangeAllocator interface {
	Get() (*IDRange, error)
	Return(*IDRange) error
}

// RangeNexter numbers rows from the ranges of a RangeAllocator, drawing a new
// range whenever the current one runs out.
type RangeNexter interface {
	Next() (uint64, error)
	Return() error
}

// IDRange holds the ids in [Start, End).
type IDRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of ids left in the range.
func (r *IDRange) Len() uint64 { return r.End - r.Start }

func (r *IDRange) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// LocalRangeAllocator is an in-process RangeAllocator. Fresh ranges are
// width ids wide and start at multiples of width, so the bits above width
// identify the unit an id came from.
type LocalRangeAllocator struct {
	mu       sync.Mutex
	width    uint64
	next     uint64
	returned []*IDRange
}

// NewLocalRangeAllocator returns an allocator of width wide ranges. It
// panics unless width is a power of two no smaller than 2^16.
func NewLocalRangeAllocator(width uint64) *LocalRangeAllocator {
	if width < 1<<16 || bits.OnesCount64(width) != 1 {
		panic(fmt.Sprintf("range width must be a power of two >= 2^16, got %d", width))
	}
	return &LocalRangeAllocator{width: width}
}

// Get implements RangeAllocator. The most recently returned range is handed
// out again before a fresh one is carved off.
func (a *LocalRangeAllocator) Get() (*IDRange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.returned); n > 0 {
		r := a.returned[n-1]
		a.returned = a.returned[:n-1]
		return r, nil
	}
	if a.next > math.MaxInt64-a.width+1 {
		return nil, ErrRangesExhausted
	}
	r := &IDRange{Start: a.next, End: a.next + a.width}
	a.next += a.width
	return r, nil
}

// Return implements RangeAllocator. Empty ranges are dropped.
func (a *LocalRangeAllocator) Return(r *IDRange) error {
	if r.Start > r.End {
		return errors.Errorf("returning inverted range %v", r)
	}
	if r.Len() == 0 {
		return nil
	}
	a.mu.Lock()
	a.returned = append(a.returned, r)
	a.mu.Unlock()
	return nil
}

type rangeNexter struct {
	a RangeAllocator
	r *IDRange
}

// NewRangeNexter draws a first range from a.
func NewRangeNexter(a RangeAllocator) (RangeNexter, error) {
	r, err := a.Get()
	if err != nil {
		return nil, errors.Wrap(err, "getting range")
	}
	return &rangeNexter{a: a, r: r}, nil
}

// Next returns the next id of the current range.
func (n *rangeNexter) Next() (uint64, error) {
	if n.r.Len() == 0 {
		r, err := n.a.Get()
		if err != nil {
			return 0, errors.Wrap(err, "getting next range")
		}
		if r.Len() == 0 {
			return 0, errors.Errorf("allocator returned empty range %v", r)
		}
		n.r = r
	}
	id := n.r.Start
	n.r.Start++
	return id, nil
}

// Return gives the unused part of the current range back to the allocator.
func (n *rangeNexter) Return() error {
	return n.a.Return(n.r)
}
