package musiclake

import (
	"context"
	"io"
)

// Store is a flat namespace of objects addressed by slash separated keys
// relative to the store's root. Local directories and S3 prefixes both
// implement it.
type Store interface {
	// Put creates or replaces the object at key.
	Put(ctx context.Context, key string, data []byte) error

	// Get opens the object at key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys of every object under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// DeletePrefix removes every object under prefix. It is not an error for
	// there to be none.
	DeletePrefix(ctx context.Context, prefix string) error
}

// TableWriter persists tables. WritePartitioned replaces everything under
// dest with t, split into one file per distinct combination of the
// partitionBy columns.
type TableWriter interface {
	WritePartitioned(ctx context.Context, t *Table, dest string, partitionBy ...string) error
}

// TableReader reads back a table persisted by a TableWriter. Columns are
// returned in schema order, including partition columns recovered from the
// layout.
type TableReader interface {
	ReadTable(ctx context.Context, src string, schema Schema) (*Table, error)
}
