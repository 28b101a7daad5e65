package musiclake

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Output locations of the five tables, relative to the output root.
const (
	SongsPath     = "songs"
	ArtistsPath   = "artists"
	UsersPath     = "users"
	TimePath      = "time_table"
	SongplaysPath = "songplays"
)

// Partition columns of each table.
var (
	SongsPartitions     = []string{"year", "artist_id"}
	TimePartitions      = []string{"year", "month"}
	SongplaysPartitions = []string{"year", "month"}
)

// Pipeline runs the whole star schema build: it extracts the song catalog
// and writes songs and artists, extracts the event log and writes users and
// time, then builds and writes songplays. Any failure aborts the run; tables
// written before the failure are left in place.
type Pipeline struct {
	SongSource Source
	LogSource  Source

	Writer TableWriter
	// Reader is required when RereadSongs is set.
	Reader TableReader

	Songs  *SongCatalogExtractor
	Events *EventLogExtractor
	Facts  *FactBuilder

	// RereadSongs makes the fact builder read songs back from the output
	// instead of using the table just written.
	RereadSongs bool

	Log   Logger
	Stats Statter
}

// Summary reports the number of rows written to each table.
type Summary struct {
	Songs     int
	Artists   int
	Users     int
	Time      int
	Songplays int
}

// Run executes the pipeline.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.SongSource == nil || p.LogSource == nil {
		return nil, errors.New("song and log sources are required")
	}
	if p.Writer == nil {
		return nil, errors.New("table writer is required")
	}
	if p.RereadSongs && p.Reader == nil {
		return nil, errors.New("rereading songs requires a table reader")
	}
	if p.Log == nil {
		p.Log = NopLogger{}
	}
	if p.Stats == nil {
		p.Stats = NopStatter{}
	}
	if p.Songs == nil {
		p.Songs = NewSongCatalogExtractor()
	}
	if p.Events == nil {
		p.Events = &EventLogExtractor{}
	}
	if p.Facts == nil {
		p.Facts = NewFactBuilder()
	}
	start := time.Now()
	sum := &Summary{}

	catalog, err := p.Songs.Extract(p.SongSource)
	if err != nil {
		return nil, errors.Wrap(err, "extracting song catalog")
	}
	if err := p.Writer.WritePartitioned(ctx, catalog.Songs, SongsPath, SongsPartitions...); err != nil {
		return nil, errors.Wrap(err, "writing songs")
	}
	if err := p.Writer.WritePartitioned(ctx, catalog.Artists, ArtistsPath); err != nil {
		return nil, errors.Wrap(err, "writing artists")
	}
	sum.Songs, sum.Artists = catalog.Songs.Len(), catalog.Artists.Len()

	events, err := p.Events.Extract(p.LogSource)
	if err != nil {
		return nil, errors.Wrap(err, "extracting event log")
	}
	if err := p.Writer.WritePartitioned(ctx, events.Users, UsersPath); err != nil {
		return nil, errors.Wrap(err, "writing users")
	}
	if err := p.Writer.WritePartitioned(ctx, events.Time, TimePath, TimePartitions...); err != nil {
		return nil, errors.Wrap(err, "writing time")
	}
	sum.Users, sum.Time = events.Users.Len(), events.Time.Len()

	songs := catalog.Songs
	if p.RereadSongs {
		songs, err = p.Reader.ReadTable(ctx, SongsPath, SongsSchema)
		if err != nil {
			return nil, errors.Wrap(err, "rereading songs")
		}
		p.Log.Debugf("reread %d songs", songs.Len())
	}
	facts, err := p.Facts.Build(events.Plays, songs, events.Time)
	if err != nil {
		return nil, errors.Wrap(err, "building songplays")
	}
	if err := p.Writer.WritePartitioned(ctx, facts, SongplaysPath, SongplaysPartitions...); err != nil {
		return nil, errors.Wrap(err, "writing songplays")
	}
	sum.Songplays = facts.Len()

	p.Stats.Timing("run.duration", time.Since(start), 1)
	p.Log.Printf("run complete in %v: %d songs, %d artists, %d users, %d times, %d songplays",
		time.Since(start), sum.Songs, sum.Artists, sum.Users, sum.Time, sum.Songplays)
	return sum, nil
}
