package musiclake

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Type is the type of a table column. Each Type has exactly one Go
// representation inside a Row, listed next to it below. A nil value is null
// for every Type.
type Type int

const (
	String    Type = iota // string
	Double                // float64
	Integer               // int32
	Long                  // int64
	Timestamp             // time.Time, always UTC
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Double:
		return "double"
	case Integer:
		return "integer"
	case Long:
		return "long"
	case Timestamp:
		return "timestamp"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Column names and types one column of a table.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Decode converts a raw JSON object into a Row laid out by s. Every value is
// coerced to its column type, and a value that cannot be coerced yields a
// SchemaViolation. An absent field is null, unless strict is set in which
// case it yields a MissingField.
func (s Schema) Decode(rec map[string]interface{}, strict bool) (Row, error) {
	row := make(Row, len(s))
	for i, c := range s {
		raw, ok := rec[c.Name]
		if !ok {
			if strict {
				return nil, &MissingField{Field: c.Name}
			}
			continue
		}
		val, err := Coerce(c.Type, raw)
		if err != nil {
			if sv, ok := err.(*SchemaViolation); ok {
				sv.Column = c.Name
			}
			return nil, err
		}
		row[i] = val
	}
	return row, nil
}

// Coerce converts a decoded JSON value to the Go representation of typ.
//
// Strings accept JSON strings, numbers (by their literal text) and booleans.
// Doubles accept any number. Integers and longs accept numbers with an
// integral value that fits the type, so 1997.0 is accepted as 1997 but 1997.5
// is not. Nothing coerces from a JSON object or array.
func Coerce(typ Type, val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	violation := &SchemaViolation{Value: val, Type: typ}
	switch typ {
	case String:
		switch v := val.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case bool:
			return strconv.FormatBool(v), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		}
	case Double:
		switch v := val.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, violation
			}
			return f, nil
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case Integer:
		n, ok := toInt64(val)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, violation
		}
		return int32(n), nil
	case Long:
		n, ok := toInt64(val)
		if !ok {
			return nil, violation
		}
		return n, nil
	case Timestamp:
		if v, ok := val.(time.Time); ok {
			return v.UTC(), nil
		}
	default:
		return nil, errors.Errorf("unsupported column type %v", typ)
	}
	return nil, violation
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(v)
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// SongDataSchema is the enforced shape of a raw song record. Song files are
// terse and inferring their types is unreliable, so they are always read
// against this schema.
var SongDataSchema = Schema{
	{Name: "artist_id", Type: String},
	{Name: "artist_latitude", Type: Double},
	{Name: "artist_location", Type: String},
	{Name: "artist_longitude", Type: Double},
	{Name: "artist_name", Type: String},
	{Name: "duration", Type: Double},
	{Name: "num_songs", Type: Integer},
	{Name: "title", Type: String},
	{Name: "year", Type: Integer},
}

// EventLogSchema lists the fields of a raw event record that the event log
// extractor references on play events, with the types they are read as. The
// log itself has no enforced schema; other fields are ignored.
var EventLogSchema = Schema{
	{Name: "userId", Type: String},
	{Name: "firstName", Type: String},
	{Name: "lastName", Type: String},
	{Name: "gender", Type: String},
	{Name: "level", Type: String},
	{Name: "ts", Type: Long},
	{Name: "song", Type: String},
	{Name: "sessionId", Type: Long},
	{Name: "location", Type: String},
	{Name: "userAgent", Type: String},
}

// SongsSchema is the layout of the songs dimension.
var SongsSchema = Schema{
	{Name: "song_id", Type: Long},
	{Name: "title", Type: String},
	{Name: "artist_id", Type: String},
	{Name: "year", Type: Integer},
	{Name: "duration", Type: Double},
}

// ArtistsSchema is the layout of the artists dimension.
var ArtistsSchema = Schema{
	{Name: "artist_id", Type: String},
	{Name: "name", Type: String},
	{Name: "location", Type: String},
	{Name: "latitude", Type: Double},
	{Name: "longitude", Type: Double},
}

// UsersSchema is the layout of the users dimension.
var UsersSchema = Schema{
	{Name: "user_id", Type: String},
	{Name: "first_name", Type: String},
	{Name: "last_name", Type: String},
	{Name: "gender", Type: String},
	{Name: "level", Type: String},
}

// TimeSchema is the layout of the time dimension.
var TimeSchema = Schema{
	{Name: "start_time", Type: Timestamp},
	{Name: "hour", Type: Integer},
	{Name: "day", Type: Integer},
	{Name: "week", Type: Integer},
	{Name: "month", Type: Integer},
	{Name: "year", Type: Integer},
	{Name: "weekday", Type: Integer},
	{Name: "ts", Type: Long},
}

// SongplaysSchema is the layout of the songplays fact table.
var SongplaysSchema = Schema{
	{Name: "songplay_id", Type: Long},
	{Name: "start_time", Type: Timestamp},
	{Name: "user_id", Type: String},
	{Name: "level", Type: String},
	{Name: "song_id", Type: Long},
	{Name: "artist_id", Type: String},
	{Name: "session_id", Type: Long},
	{Name: "location", Type: String},
	{Name: "user_agent", Type: String},
	{Name: "year", Type: Integer},
	{Name: "month", Type: Integer},
}
