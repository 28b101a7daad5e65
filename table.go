package musiclake

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Row holds one value per column of the table it belongs to.
type Row []interface{}

// Table is an immutable, in-memory tabular dataset. Every operation returns a
// new Table and leaves its receiver untouched; rows may be shared between
// tables, so callers must not modify the rows they get back.
type Table struct {
	schema Schema
	rows   []Row
}

// NewTable returns a Table over rows, which must all be as wide as schema.
func NewTable(schema Schema, rows ...Row) (*Table, error) {
	seen := make(map[string]struct{}, len(schema))
	for _, c := range schema {
		if _, ok := seen[c.Name]; ok {
			return nil, errors.Wrapf(ErrAmbiguousColumn, "'%s'", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(schema) {
			return nil, errors.Errorf("row %d has %d values, schema has %d columns", i, len(r), len(schema))
		}
	}
	return &Table{schema: append(Schema(nil), schema...), rows: rows}, nil
}

// LoadTable reads every record from src and decodes it against schema.
// Absent fields are null; values of the wrong type fail the load with a
// SchemaViolation.
func LoadTable(src Source, schema Schema) (*Table, error) {
	var rows []Row
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading record")
		}
		obj, ok := rec.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("record %d is a %T, not a JSON object", len(rows), rec)
		}
		row, err := schema.Decode(obj, false)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding record %d", len(rows))
		}
		rows = append(rows, row)
	}
	return NewTable(schema, rows...)
}

// Schema returns a copy of the table's schema.
func (t *Table) Schema() Schema { return append(Schema(nil), t.schema...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the table's rows. They must not be modified.
func (t *Table) Rows() []Row { return t.rows }

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]interface{}, error) {
	idx := t.schema.Index(name)
	if idx < 0 {
		return nil, errors.Wrapf(ErrUnknownColumn, "'%s'", name)
	}
	vals := make([]interface{}, len(t.rows))
	for i, r := range t.rows {
		vals[i] = r[idx]
	}
	return vals, nil
}

// RowView is a read-only view of a Row addressed by column name.
type RowView struct {
	schema Schema
	row    Row
	idx    int
}

// Get returns the value of the named column, or nil if there is no such column.
func (v RowView) Get(name string) interface{} {
	if i := v.schema.Index(name); i >= 0 {
		return v.row[i]
	}
	return nil
}

// Index returns the position of the row in its table.
func (v RowView) Index() int { return v.idx }

func (t *Table) view(i int) RowView {
	return RowView{schema: t.schema, row: t.rows[i], idx: i}
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(RowView) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(t.view(i)) {
			rows = append(rows, r)
		}
	}
	return &Table{schema: t.schema, rows: rows}
}

// Projection selects a column, optionally renaming it.
type Projection struct {
	From string
	To   string
}

// Col projects the named column unchanged.
func Col(name string) Projection { return Projection{From: name, To: name} }

// As renames the projected column.
func (p Projection) As(alias string) Projection {
	p.To = alias
	return p
}

// Select returns a table holding only the projected columns, in order.
func (t *Table) Select(ps ...Projection) (*Table, error) {
	schema := make(Schema, len(ps))
	idxs := make([]int, len(ps))
	for i, p := range ps {
		idx := t.schema.Index(p.From)
		if idx < 0 {
			return nil, errors.Wrapf(ErrUnknownColumn, "selecting '%s'", p.From)
		}
		idxs[i] = idx
		schema[i] = Column{Name: p.To, Type: t.schema[idx].Type}
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(idxs))
		for j, idx := range idxs {
			nr[j] = r[idx]
		}
		rows[i] = nr
	}
	return NewTable(schema, rows...)
}

// WithColumn returns a table with col computed for every row by derive. An
// existing column of the same name is replaced in place, otherwise col is
// appended. Values returned by derive are coerced to col.Type.
func (t *Table) WithColumn(col Column, derive func(RowView) (interface{}, error)) (*Table, error) {
	schema := t.Schema()
	pos := schema.Index(col.Name)
	if pos < 0 {
		pos = len(schema)
		schema = append(schema, col)
	} else {
		schema[pos] = col
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		val, err := derive(t.view(i))
		if err != nil {
			return nil, errors.Wrapf(err, "deriving '%s' for row %d", col.Name, i)
		}
		val, err = Coerce(col.Type, val)
		if err != nil {
			if sv, ok := err.(*SchemaViolation); ok {
				sv.Column = col.Name
			}
			return nil, errors.Wrapf(err, "deriving '%s' for row %d", col.Name, i)
		}
		nr := make(Row, len(schema))
		copy(nr, r)
		nr[pos] = val
		rows[i] = nr
	}
	return &Table{schema: schema, rows: rows}, nil
}

// Join is an inner equi-join of t and other on t.leftKey == other.rightKey.
// The result has t's columns followed by other's; when both keys have the
// same name the right key is dropped. Rows come out in t's order, and each
// left row is followed by every matching right row in other's order. Null
// keys never match.
func (t *Table) Join(other *Table, leftKey, rightKey string) (*Table, error) {
	li := t.schema.Index(leftKey)
	if li < 0 {
		return nil, errors.Wrapf(ErrUnknownColumn, "left join key '%s'", leftKey)
	}
	ri := other.schema.Index(rightKey)
	if ri < 0 {
		return nil, errors.Wrapf(ErrUnknownColumn, "right join key '%s'", rightKey)
	}
	dropRight := leftKey == rightKey
	schema := t.Schema()
	rightIdxs := make([]int, 0, len(other.schema))
	for i, c := range other.schema {
		if dropRight && i == ri {
			continue
		}
		rightIdxs = append(rightIdxs, i)
		schema = append(schema, c)
	}

	index := make(map[string][]Row)
	var buf []byte
	for _, r := range other.rows {
		if r[ri] == nil {
			continue
		}
		buf = appendKey(buf[:0], r[ri])
		index[string(buf)] = append(index[string(buf)], r)
	}

	var rows []Row
	for _, l := range t.rows {
		if l[li] == nil {
			continue
		}
		buf = appendKey(buf[:0], l[li])
		for _, r := range index[string(buf)] {
			nr := make(Row, 0, len(schema))
			nr = append(nr, l...)
			for _, idx := range rightIdxs {
				nr = append(nr, r[idx])
			}
			rows = append(rows, nr)
		}
	}
	return NewTable(schema, rows...)
}

// Distinct removes rows which are equal, value for value, to an earlier
// row. Nulls are equal to each other. The first occurrence of each row is
// kept, so Distinct preserves order and is idempotent.
func (t *Table) Distinct() *Table {
	seen := make(map[string]struct{}, len(t.rows))
	rows := make([]Row, 0, len(t.rows))
	var buf []byte
	for _, r := range t.rows {
		buf = buf[:0]
		for _, v := range r {
			buf = appendKey(buf, v)
		}
		if _, ok := seen[string(buf)]; ok {
			continue
		}
		seen[string(buf)] = struct{}{}
		rows = append(rows, r)
	}
	return &Table{schema: t.schema, rows: rows}
}

// appendKey appends a self-delimiting, type-tagged encoding of v to buf.
// Equal values always produce equal encodings.
func appendKey(buf []byte, v interface{}) []byte {
	switch v := v.(type) {
	case nil:
		return append(buf, 0)
	case string:
		buf = append(buf, 1)
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		return append(buf, v...)
	case float64:
		buf = append(buf, 2)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
	case int32:
		buf = append(buf, 3)
		return binary.BigEndian.AppendUint32(buf, uint32(v))
	case int64:
		buf = append(buf, 4)
		return binary.BigEndian.AppendUint64(buf, uint64(v))
	case time.Time:
		buf = append(buf, 5)
		return binary.BigEndian.AppendUint64(buf, uint64(v.UnixNano()))
	default:
		s := fmt.Sprintf("%T:%#v", v, v)
		buf = append(buf, 6)
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		return append(buf, s...)
	}
}
