package musiclake

import (
	"strings"

	"github.com/pkg/errors"
)

// TitlePolicy decides what the fact builder does with song titles that
// appear more than once in the catalog.
type TitlePolicy int

const (
	// FanoutTitles joins a play to every catalog entry with its title, so one
	// play can produce several fact rows. The extra rows are counted in
	// songplays.fanout.
	FanoutTitles TitlePolicy = iota

	// RejectDuplicateTitles fails the build with ErrDuplicateTitle if any
	// title appears more than once in the catalog.
	RejectDuplicateTitles
)

func (p TitlePolicy) String() string {
	switch p {
	case FanoutTitles:
		return "fanout"
	case RejectDuplicateTitles:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseTitlePolicy parses the names returned by TitlePolicy.String.
func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch strings.ToLower(s) {
	case "", "fanout":
		return FanoutTitles, nil
	case "reject":
		return RejectDuplicateTitles, nil
	default:
		return 0, errors.Errorf("unknown title policy '%s'", s)
	}
}

// FactBuilder builds the songplays fact table.
type FactBuilder struct {
	Keys        KeyAssigner
	TitlePolicy TitlePolicy

	Log   Logger
	Stats Statter
}

// NewFactBuilder returns a FactBuilder numbering song plays sequentially and
// fanning out duplicate titles.
func NewFactBuilder() *FactBuilder {
	return &FactBuilder{
		Keys:  NewSequentialKeys(),
		Log:   NopLogger{},
		Stats: NopStatter{},
	}
}

// Build joins plays to songs on song title, numbers the joined rows, and
// joins them to the time dimension on start_time. Plays without a matching
// title or start_time are dropped and counted in songplays.join_miss and
// songplays.time_miss. The result is laid out as SongplaysSchema.
func (b *FactBuilder) Build(plays, songs, tt *Table) (*Table, error) {
	if b.Keys == nil {
		b.Keys = NewSequentialKeys()
	}
	if b.Log == nil {
		b.Log = NopLogger{}
	}
	if b.Stats == nil {
		b.Stats = NopStatter{}
	}

	titles, err := songs.Column("title")
	if err != nil {
		return nil, errors.Wrap(err, "reading catalog titles")
	}
	known := make(map[interface{}]int, len(titles))
	for _, t := range titles {
		if t == nil {
			continue
		}
		known[t]++
		if known[t] > 1 && b.TitlePolicy == RejectDuplicateTitles {
			return nil, errors.Wrapf(ErrDuplicateTitle, "'%v'", t)
		}
	}

	events, err := plays.Select(
		Col("start_time"),
		Col("userId").As("user_id"),
		Col("level"),
		Col("song"),
		Col("sessionId").As("session_id"),
		Col("location"),
		Col("userAgent").As("user_agent"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "projecting plays")
	}
	catalog, err := songs.Select(Col("title").As("song"), Col("song_id"), Col("artist_id"))
	if err != nil {
		return nil, errors.Wrap(err, "projecting songs")
	}
	joined, err := events.Join(catalog, "song", "song")
	if err != nil {
		return nil, errors.Wrap(err, "joining plays to songs")
	}

	var matched int
	songIdx := events.schema.Index("song")
	for _, r := range events.rows {
		if r[songIdx] != nil && known[r[songIdx]] > 0 {
			matched++
		}
	}
	misses := events.Len() - matched
	b.Stats.Count("songplays.join_miss", int64(misses), 1)
	b.Stats.Count("songplays.fanout", int64(joined.Len()-matched), 1)
	if misses > 0 {
		b.Log.Printf("%d of %d plays matched no song title", misses, events.Len())
	}

	keys, err := b.Keys.Keys(joined)
	if err != nil {
		return nil, errors.Wrap(err, "assigning songplay ids")
	}
	joined, err = joined.WithColumn(Column{Name: "songplay_id", Type: Long}, func(row RowView) (interface{}, error) {
		return keys[row.Index()], nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "attaching songplay ids")
	}

	times, err := tt.Select(Col("start_time"), Col("year"), Col("month"))
	if err != nil {
		return nil, errors.Wrap(err, "projecting time")
	}
	facts, err := joined.Join(times.Distinct(), "start_time", "start_time")
	if err != nil {
		return nil, errors.Wrap(err, "joining plays to time")
	}
	b.Stats.Count("songplays.time_miss", int64(joined.Len()-facts.Len()), 1)

	ps := make([]Projection, len(SongplaysSchema))
	for i, c := range SongplaysSchema {
		ps[i] = Col(c.Name)
	}
	facts, err = facts.Select(ps...)
	if err != nil {
		return nil, errors.Wrap(err, "projecting songplays")
	}
	b.Stats.Count("songplays.rows", int64(facts.Len()), 1)
	b.Log.Printf("songplays: %d rows from %d plays", facts.Len(), events.Len())
	return facts, nil
}
