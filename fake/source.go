package fake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pilosa/musiclake"
	mjson "github.com/pilosa/musiclake/json"
	"github.com/pkg/errors"
)

// Options sizes a generated data set. The same options always give the same
// data on a given version of Go.
type Options struct {
	Seed     int64
	Songs    int
	Users    int
	Sessions int
	Start    time.Time
	Days     int
}

// DefaultOptions returns a small month of listening in November 2018.
func DefaultOptions() Options {
	return Options{
		Seed:     1,
		Songs:    200,
		Users:    50,
		Sessions: 400,
		Start:    time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC),
		Days:     30,
	}
}

// Data is a generated song catalog and the listening log played over it.
type Data struct {
	Songs  []*Song
	Events []*Event
}

// Generate builds a data set.
func Generate(opts Options) *Data {
	if opts.Days < 1 {
		opts.Days = 1
	}
	if opts.Users < 1 {
		opts.Users = 1
	}
	songs := NewSongGenerator(opts.Seed).Catalog(opts.Songs)
	users := NewUserGenerator(opts.Seed+1).Users(opts.Users, float64(opts.Start.UnixNano()/int64(time.Millisecond)))
	events := NewEventGenerator(opts.Seed+2, songs, users).Events(opts.Start, opts.Days, opts.Sessions)
	return &Data{Songs: songs, Events: events}
}

// SongSource returns the catalog as a musiclake.Source, decoded the same way
// as song files.
func (d *Data) SongSource() (musiclake.Source, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	for _, s := range d.Songs {
		if err := enc.Encode(s); err != nil {
			return nil, errors.Wrapf(err, "encoding song %s", s.TrackID)
		}
	}
	return mjson.NewSource(buf), nil
}

// LogSource returns the listening log as a musiclake.Source, decoded the same
// way as log files.
func (d *Data) LogSource() (musiclake.Source, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	for _, e := range d.Events {
		if err := enc.Encode(e); err != nil {
			return nil, errors.Wrap(err, "encoding event")
		}
	}
	return mjson.NewSource(buf), nil
}

// LogKey returns the key of the log file holding events of day t.
func LogKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("log_data/%d/%02d/%s-events.json", t.Year(), t.Month(), t.Format("2006-01-02"))
}

// Write stores one file per song and one newline delimited file of events
// per day.
func (d *Data) Write(ctx context.Context, store musiclake.Store) error {
	for _, s := range d.Songs {
		data, err := json.Marshal(s)
		if err != nil {
			return errors.Wrapf(err, "encoding song %s", s.TrackID)
		}
		if err := store.Put(ctx, s.Key(), data); err != nil {
			return errors.Wrapf(err, "writing %s", s.Key())
		}
	}
	days := make(map[string]*bytes.Buffer)
	var keys []string
	for _, e := range d.Events {
		key := LogKey(e.Time())
		buf, ok := days[key]
		if !ok {
			buf = &bytes.Buffer{}
			days[key] = buf
			keys = append(keys, key)
		}
		if err := json.NewEncoder(buf).Encode(e); err != nil {
			return errors.Wrap(err, "encoding event")
		}
	}
	for _, key := range keys {
		if err := store.Put(ctx, key, days[key].Bytes()); err != nil {
			return errors.Wrapf(err, "writing %s", key)
		}
	}
	return nil
}

// WriteSampleData generates a data set with opts and writes it to store.
func WriteSampleData(ctx context.Context, store musiclake.Store, opts Options) (*Data, error) {
	d := Generate(opts)
	if err := d.Write(ctx, store); err != nil {
		return nil, errors.Wrap(err, "writing sample data")
	}
	return d, nil
}
