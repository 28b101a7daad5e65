package geohash

import (
	"github.com/mmcloughlin/geohash"
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

// MaxPrecision is the longest geohash, in characters, a Transformer produces.
const MaxPrecision = 12

// Transformer is a musiclake.Transformer for geohashing locations to strings.
type Transformer struct {
	Precision    uint
	LatColumn    string
	LonColumn    string
	ResultColumn string
}

// NewTransformer returns a Transformer which hashes the latitude and
// longitude columns of the artists table into a "geohash" column.
func NewTransformer(precision uint) *Transformer {
	return &Transformer{
		Precision:    precision,
		LatColumn:    "latitude",
		LonColumn:    "longitude",
		ResultColumn: "geohash",
	}
}

// Column implements musiclake.Transformer.
func (t *Transformer) Column() musiclake.Column {
	return musiclake.Column{Name: t.ResultColumn, Type: musiclake.String}
}

// Transform hashes the latitude and longitude of row. The result is null if
// either coordinate is null.
func (t *Transformer) Transform(row musiclake.RowView) (interface{}, error) {
	if t.Precision == 0 || t.Precision > MaxPrecision {
		return nil, errors.Errorf("geohash precision must be between 1 and %d, got %d", MaxPrecision, t.Precision)
	}
	lat, err := coordinate(row, t.LatColumn)
	if err != nil {
		return nil, errors.Wrap(err, "getting latitude")
	}
	lon, err := coordinate(row, t.LonColumn)
	if err != nil {
		return nil, errors.Wrap(err, "getting longitude")
	}
	if lat == nil || lon == nil {
		return nil, nil
	}
	return geohash.EncodeWithPrecision(*lat, *lon, t.Precision), nil
}

func coordinate(row musiclake.RowView, col string) (*float64, error) {
	switch v := row.Get(col).(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	default:
		return nil, errors.Errorf("'%s' is a %T, not a double", col, v)
	}
}
