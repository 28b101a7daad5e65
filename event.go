package musiclake

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// NextSongPage is the page value of an event that records a song play.
const NextSongPage = "NextSong"

// EventLog holds what the event log extractor derives from raw events.
type EventLog struct {
	// Plays has one row per song play event: the EventLogSchema columns
	// followed by start_time. It is what the fact builder consumes.
	Plays *Table

	Users *Table
	Time  *Table
}

// EventLogExtractor filters raw events down to song plays and derives the
// users and time dimensions from them.
type EventLogExtractor struct {
	Log   Logger
	Stats Statter
}

// Extract reads every record from src. Every record must carry a page field;
// only NextSong records are kept, and they must carry every EventLogSchema
// field or the extraction fails with a MissingField. A play whose level is
// neither free nor paid fails with a SchemaViolation.
func (x *EventLogExtractor) Extract(src Source) (*EventLog, error) {
	if x.Log == nil {
		x.Log = NopLogger{}
	}
	if x.Stats == nil {
		x.Stats = NopStatter{}
	}
	plays, records, err := x.scan(src)
	if err != nil {
		return nil, errors.Wrap(err, "reading events")
	}
	x.Stats.Count("events.records", int64(records), 1)
	x.Stats.Count("events.skipped", int64(records-plays.Len()), 1)

	plays, err = plays.WithColumn(Column{Name: "start_time", Type: Timestamp}, func(row RowView) (interface{}, error) {
		ts, ok := row.Get("ts").(int64)
		if !ok {
			return nil, nil
		}
		return StartTime(ts), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "deriving start_time")
	}

	users, err := plays.Select(
		Col("userId").As("user_id"),
		Col("firstName").As("first_name"),
		Col("lastName").As("last_name"),
		Col("gender"),
		Col("level"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "deriving users")
	}
	users = users.Distinct()

	tt, err := timeTable(plays)
	if err != nil {
		return nil, errors.Wrap(err, "deriving time")
	}

	x.Stats.Count("users.rows", int64(users.Len()), 1)
	x.Stats.Count("time.rows", int64(tt.Len()), 1)
	x.Log.Printf("event log: %d records, %d plays, %d users, %d times", records, plays.Len(), users.Len(), tt.Len())
	return &EventLog{Plays: plays, Users: users, Time: tt}, nil
}

func (x *EventLogExtractor) scan(src Source) (*Table, int, error) {
	levelIdx := EventLogSchema.Index("level")
	var rows []Row
	records := 0
	for ; ; records++ {
		rec, err := src.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, records, errors.Wrapf(err, "getting record %d", records)
		}
		obj, ok := rec.(map[string]interface{})
		if !ok {
			return nil, records, errors.Errorf("record %d is a %T, not a JSON object", records, rec)
		}
		page, ok := obj["page"]
		if !ok {
			return nil, records, errors.Wrapf(&MissingField{Field: "page"}, "record %d", records)
		}
		if page != NextSongPage {
			continue
		}
		row, err := EventLogSchema.Decode(obj, true)
		if err != nil {
			return nil, records, errors.Wrapf(err, "record %d", records)
		}
		switch row[levelIdx] {
		case nil, "free", "paid":
		default:
			return nil, records, errors.Wrapf(&SchemaViolation{Column: "level", Value: row[levelIdx], Type: String}, "record %d", records)
		}
		rows = append(rows, row)
	}
	plays, err := NewTable(EventLogSchema, rows...)
	return plays, records, err
}

func timePart(name string, part func(TimeParts) int32) Transformer {
	return NewTransformer(Column{Name: name, Type: Integer}, func(row RowView) (interface{}, error) {
		t, ok := row.Get("start_time").(time.Time)
		if !ok {
			return nil, nil
		}
		return part(Decompose(t)), nil
	})
}

var timeTransformers = []Transformer{
	timePart("hour", func(p TimeParts) int32 { return p.Hour }),
	timePart("day", func(p TimeParts) int32 { return p.Day }),
	timePart("week", func(p TimeParts) int32 { return p.Week }),
	timePart("month", func(p TimeParts) int32 { return p.Month }),
	timePart("year", func(p TimeParts) int32 { return p.Year }),
	timePart("weekday", func(p TimeParts) int32 { return p.Weekday }),
}

// timeTable decomposes the start_time of every play and keeps one row per
// distinct (start_time, ts) pair.
func timeTable(plays *Table) (*Table, error) {
	tt, err := plays.Select(Col("start_time"), Col("ts"))
	if err != nil {
		return nil, err
	}
	tt, err = Transform(tt, timeTransformers...)
	if err != nil {
		return nil, err
	}
	ps := make([]Projection, len(TimeSchema))
	for i, c := range TimeSchema {
		ps[i] = Col(c.Name)
	}
	tt, err = tt.Select(ps...)
	if err != nil {
		return nil, err
	}
	return tt.Distinct(), nil
}
