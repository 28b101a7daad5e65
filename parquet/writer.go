package parquet

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"time"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/compress"
	"github.com/apache/arrow/go/v11/parquet/file"
	"github.com/apache/arrow/go/v11/parquet/pqarrow"
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// PartFile is the name of the single data file in each partition.
	PartFile = "part-00000.parquet"

	// SuccessFile marks a table whose write completed.
	SuccessFile = "_SUCCESS"
)

// Writer is a musiclake.TableWriter which writes Hive style partitioned
// parquet files into a Store.
type Writer struct {
	Store musiclake.Store

	// Concurrency bounds the number of partitions encoded and uploaded at
	// once.
	Concurrency int
	Compression compress.Compression
	Mem         memory.Allocator

	Log   musiclake.Logger
	Stats musiclake.Statter
}

// NewWriter returns a Writer producing snappy compressed files in store.
func NewWriter(store musiclake.Store) *Writer {
	return &Writer{
		Store:       store,
		Concurrency: 8,
		Compression: compress.Codecs.Snappy,
		Mem:         memory.NewGoAllocator(),
		Log:         musiclake.NopLogger{},
		Stats:       musiclake.NopStatter{},
	}
}

type partition struct {
	dir  string
	rows []musiclake.Row
}

// WritePartitioned implements musiclake.TableWriter. Everything under dest
// is deleted first. Each distinct combination of partitionBy values is
// written to dest/<col>=<val>/.../part-00000.parquet with the partition
// columns left out of the file. An unpartitioned table is always written,
// even when empty. A _SUCCESS marker is written last.
func (w *Writer) WritePartitioned(ctx context.Context, t *musiclake.Table, dest string, partitionBy ...string) error {
	schema := t.Schema()
	pidxs := make([]int, len(partitionBy))
	isPart := make(map[int]bool, len(partitionBy))
	for i, name := range partitionBy {
		pidxs[i] = schema.Index(name)
		if pidxs[i] < 0 {
			return errors.Wrapf(musiclake.ErrUnknownColumn, "partitioning '%s' by '%s'", dest, name)
		}
		isPart[pidxs[i]] = true
	}
	var dataSchema musiclake.Schema
	var didxs []int
	for i, c := range schema {
		if !isPart[i] {
			dataSchema = append(dataSchema, c)
			didxs = append(didxs, i)
		}
	}

	if err := w.Store.DeletePrefix(ctx, dest+"/"); err != nil {
		return &musiclake.WriteFailure{Path: dest, Err: errors.Wrap(err, "clearing destination")}
	}

	parts := w.group(t, partitionBy, pidxs, didxs)
	eg, gctx := errgroup.WithContext(ctx)
	if w.Concurrency > 0 {
		eg.SetLimit(w.Concurrency)
	}
	for _, p := range parts {
		p := p
		eg.Go(func() error {
			key := path.Join(dest, p.dir, PartFile)
			data, err := w.encode(dataSchema, p.rows)
			if err != nil {
				return &musiclake.WriteFailure{Path: key, Err: errors.Wrap(err, "encoding parquet")}
			}
			if err := w.Store.Put(gctx, key, data); err != nil {
				return &musiclake.WriteFailure{Path: key, Err: err}
			}
			w.Stats.Count("write.files", 1, 1)
			w.Stats.Count("write.bytes", int64(len(data)), 1)
			w.Log.Debugf("wrote %d rows to %s (%s)", len(p.rows), key, musiclake.Bytes(len(data)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	key := path.Join(dest, SuccessFile)
	if err := w.Store.Put(ctx, key, nil); err != nil {
		return &musiclake.WriteFailure{Path: key, Err: err}
	}
	w.Log.Printf("wrote %d rows to %s in %d files", t.Len(), dest, len(parts))
	return nil
}

// group splits the rows of t by partition directory, keeping only the data
// columns, in directory order.
func (w *Writer) group(t *musiclake.Table, names []string, pidxs, didxs []int) []*partition {
	if len(pidxs) == 0 {
		p := &partition{rows: make([]musiclake.Row, t.Len())}
		for i, r := range t.Rows() {
			p.rows[i] = project(r, didxs)
		}
		return []*partition{p}
	}
	byDir := make(map[string]*partition)
	var parts []*partition
	for _, r := range t.Rows() {
		dir := partitionDir(names, pidxs, r)
		p, ok := byDir[dir]
		if !ok {
			p = &partition{dir: dir}
			byDir[dir] = p
			parts = append(parts, p)
		}
		p.rows = append(p.rows, project(r, didxs))
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].dir < parts[j].dir })
	return parts
}

func project(r musiclake.Row, idxs []int) musiclake.Row {
	nr := make(musiclake.Row, len(idxs))
	for i, idx := range idxs {
		nr[i] = r[idx]
	}
	return nr
}

func arrowType(t musiclake.Type) (arrow.DataType, error) {
	switch t {
	case musiclake.String:
		return arrow.BinaryTypes.String, nil
	case musiclake.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case musiclake.Integer:
		return arrow.PrimitiveTypes.Int32, nil
	case musiclake.Long:
		return arrow.PrimitiveTypes.Int64, nil
	case musiclake.Timestamp:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}, nil
	}
	return nil, errors.Errorf("unsupported column type %v", t)
}

func arrowSchema(s musiclake.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s))
	for i, c := range s {
		typ, err := arrowType(c.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "column '%s'", c.Name)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// encode renders rows laid out as schema into a parquet file.
func (w *Writer) encode(schema musiclake.Schema, rows []musiclake.Row) ([]byte, error) {
	as, err := arrowSchema(schema)
	if err != nil {
		return nil, err
	}
	mem := w.Mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	builder := array.NewRecordBuilder(mem, as)
	defer builder.Release()
	for j := range schema {
		if err := appendColumn(builder.Field(j), rows, j); err != nil {
			return nil, errors.Wrapf(err, "column '%s'", schema[j].Name)
		}
	}
	rec := builder.NewRecord()
	defer rec.Release()

	buf := &bytes.Buffer{}
	props := parquet.NewWriterProperties(parquet.WithCompression(w.Compression))
	if rec.NumRows() == 0 {
		// pqarrow.FileWriter cannot be closed before a column was written.
		if err := writeEmpty(buf, as, props); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	fw, err := pqarrow.NewFileWriter(as, buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, errors.Wrap(err, "creating file writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "writing record")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, "closing file writer")
	}
	return buf.Bytes(), nil
}

// writeEmpty writes a footer-only parquet file with the schema of as.
func writeEmpty(w io.Writer, as *arrow.Schema, props *parquet.WriterProperties) error {
	sc, err := pqarrow.ToParquet(as, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return errors.Wrap(err, "converting schema")
	}
	pw := file.NewParquetWriter(w, sc.Root(), file.WithWriterProps(props))
	if err := pw.Close(); err != nil {
		return errors.Wrap(err, "closing empty file")
	}
	return nil
}

func appendColumn(b array.Builder, rows []musiclake.Row, j int) error {
	for _, r := range rows {
		v := r[j]
		if v == nil {
			b.AppendNull()
			continue
		}
		ok := false
		switch b := b.(type) {
		case *array.StringBuilder:
			var s string
			if s, ok = v.(string); ok {
				b.Append(s)
			}
		case *array.Float64Builder:
			var f float64
			if f, ok = v.(float64); ok {
				b.Append(f)
			}
		case *array.Int32Builder:
			var n int32
			if n, ok = v.(int32); ok {
				b.Append(n)
			}
		case *array.Int64Builder:
			var n int64
			if n, ok = v.(int64); ok {
				b.Append(n)
			}
		case *array.TimestampBuilder:
			var t time.Time
			if t, ok = v.(time.Time); ok {
				b.Append(arrow.Timestamp(t.UnixMilli()))
			}
		default:
			return errors.Errorf("unsupported builder %T", b)
		}
		if !ok {
			return errors.Errorf("unexpected value %#v (%T)", v, v)
		}
	}
	return nil
}
