package musiclake

import (
	"sync/atomic"
)

// INexter hands out monotonically increasing ids.
type INexter interface {
	Next() uint64
	Last() uint64
}

// Nexter is an atomic counter. Ids are unique and contiguous for the
// lifetime of the Nexter and mean nothing outside it.
type Nexter struct {
	id *uint64
}

// NexterOption configures a Nexter.
type NexterOption func(n *Nexter)

// NexterStartFrom makes the first id returned by Next be start.
func NexterStartFrom(start uint64) NexterOption {
	return func(n *Nexter) {
		*n.id = start
	}
}

// NewNexter returns a Nexter starting from 0 unless configured otherwise.
func NewNexter(opts ...NexterOption) *Nexter {
	var id uint64
	n := &Nexter{
		id: &id,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Next returns the next id.
func (n *Nexter) Next() (nextID uint64) {
	nextID = atomic.AddUint64(n.id, 1)
	return nextID - 1
}

// Last returns the id most recently returned by Next.
func (n *Nexter) Last() (lastID uint64) {
	lastID = atomic.LoadUint64(n.id) - 1
	return
}
