package parquet

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/file"
	"github.com/apache/arrow/go/v11/parquet/pqarrow"
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

// Reader is a musiclake.TableReader for tables written by Writer.
type Reader struct {
	Store musiclake.Store
	Mem   memory.Allocator
}

// NewReader returns a Reader over store.
func NewReader(store musiclake.Store) *Reader {
	return &Reader{Store: store, Mem: memory.NewGoAllocator()}
}

// ReadTable implements musiclake.TableReader. Every parquet file under src is
// read in path order. Columns of schema missing from a file are taken from
// the partition directories above it, or are null.
func (r *Reader) ReadTable(ctx context.Context, src string, schema musiclake.Schema) (*musiclake.Table, error) {
	keys, err := r.Store.List(ctx, src+"/")
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", src)
	}
	var rows []musiclake.Row
	for _, key := range keys {
		rel := strings.TrimPrefix(key, src+"/")
		if !isDataFile(rel) {
			continue
		}
		parts, err := partitionValues(rel, schema)
		if err != nil {
			return nil, errors.Wrapf(err, "reading partitions of %s", key)
		}
		fileRows, err := r.readFile(ctx, key, schema, parts)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", key)
		}
		rows = append(rows, fileRows...)
	}
	return musiclake.NewTable(schema, rows...)
}

func isDataFile(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, "_") || strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return strings.HasSuffix(rel, ".parquet")
}

// partitionValues parses the col=val directories of rel for the columns of
// schema.
func partitionValues(rel string, schema musiclake.Schema) (map[string]interface{}, error) {
	segs := strings.Split(rel, "/")
	vals := make(map[string]interface{})
	for _, seg := range segs[:len(segs)-1] {
		i := strings.Index(seg, "=")
		if i < 0 {
			continue
		}
		name := unescapePathName(seg[:i])
		idx := schema.Index(name)
		if idx < 0 {
			continue
		}
		v, err := parsePartition(schema[idx].Type, seg[i+1:])
		if err != nil {
			return nil, err
		}
		vals[name] = v
	}
	return vals, nil
}

func (r *Reader) readFile(ctx context.Context, key string, schema musiclake.Schema, parts map[string]interface{}) ([]musiclake.Row, error) {
	rc, err := r.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, errors.Wrap(err, "reading object")
	}
	mem := r.Mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	pr, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet")
	}
	defer pr.Close()
	if pr.NumRows() == 0 {
		return nil, nil
	}
	fr, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, "opening arrow reader")
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "decoding parquet")
	}
	defer tbl.Release()

	n := int(tbl.NumRows())
	rows := make([]musiclake.Row, n)
	for i := range rows {
		rows[i] = make(musiclake.Row, len(schema))
	}
	for j, c := range schema {
		idxs := tbl.Schema().FieldIndices(c.Name)
		if len(idxs) == 0 {
			v := parts[c.Name]
			for i := range rows {
				rows[i][j] = v
			}
			continue
		}
		i := 0
		for _, chunk := range tbl.Column(idxs[0]).Data().Chunks() {
			for k := 0; k < chunk.Len(); k++ {
				v, err := value(chunk, k)
				if err != nil {
					return nil, errors.Wrapf(err, "column '%s'", c.Name)
				}
				v, err = musiclake.Coerce(c.Type, v)
				if err != nil {
					return nil, errors.Wrapf(err, "column '%s'", c.Name)
				}
				rows[i][j] = v
				i++
			}
		}
	}
	return rows, nil
}

// value returns the Go value at index i of arr.
func value(arr arrow.Array, i int) (interface{}, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Timestamp:
		v := int64(a.Value(i))
		switch a.DataType().(*arrow.TimestampType).Unit {
		case arrow.Second:
			return time.Unix(v, 0).UTC(), nil
		case arrow.Millisecond:
			return time.UnixMilli(v).UTC(), nil
		case arrow.Microsecond:
			return time.UnixMicro(v).UTC(), nil
		default:
			return time.Unix(0, v).UTC(), nil
		}
	}
	return nil, errors.Errorf("unsupported arrow array %T", arr)
}
