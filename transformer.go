package musiclake

import "github.com/pkg/errors"

// Transformer derives one column from each row of a table.
type Transformer interface {
	Column() Column
	Transform(row RowView) (interface{}, error)
}

// TransformerFunc can be wrapped around a function to compute the value of a
// column. Similar to http.HandlerFunc.
type TransformerFunc func(row RowView) (interface{}, error)

type funcTransformer struct {
	col Column
	fn  TransformerFunc
}

func (f funcTransformer) Column() Column { return f.col }

func (f funcTransformer) Transform(row RowView) (interface{}, error) { return f.fn(row) }

// NewTransformer returns a Transformer that computes col with fn.
func NewTransformer(col Column, fn TransformerFunc) Transformer {
	return funcTransformer{col: col, fn: fn}
}

// Transform applies each transformer to t in order, so later transformers see
// the columns derived by earlier ones.
func Transform(t *Table, ts ...Transformer) (*Table, error) {
	var err error
	for _, tr := range ts {
		t, err = t.WithColumn(tr.Column(), tr.Transform)
		if err != nil {
			return nil, errors.Wrapf(err, "applying transformer for '%s'", tr.Column().Name)
		}
	}
	return t, nil
}
