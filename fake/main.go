package fake

import (
	"context"
	"time"

	"github.com/pilosa/musiclake/file"
	"github.com/pkg/errors"
)

// Main holds the options for writing a sample data set to a local directory.
type Main struct {
	Root     string `help:"Directory to write song_data/ and log_data/ under."`
	Seed     int64  `help:"Random seed. -1 uses the current time."`
	Songs    int    `help:"Number of songs in the catalog."`
	Users    int    `help:"Number of distinct listeners."`
	Sessions int    `help:"Number of listening sessions."`
	Start    string `help:"First day of the log, as YYYY-MM-DD."`
	Days     int    `help:"Number of days the log spans."`
}

// NewMain returns a Main with the default options.
func NewMain() *Main {
	opts := DefaultOptions()
	return &Main{
		Root:     "sample",
		Seed:     opts.Seed,
		Songs:    opts.Songs,
		Users:    opts.Users,
		Sessions: opts.Sessions,
		Start:    opts.Start.Format("2006-01-02"),
		Days:     opts.Days,
	}
}

// Run generates the data set and writes it under Root.
func (m *Main) Run(ctx context.Context) (*Data, error) {
	start, err := time.Parse("2006-01-02", m.Start)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing start date '%s'", m.Start)
	}
	seed := m.Seed
	if seed == -1 {
		seed = time.Now().UnixNano()
	}
	return WriteSampleData(ctx, file.NewStore(m.Root), Options{
		Seed:     seed,
		Songs:    m.Songs,
		Users:    m.Users,
		Sessions: m.Sessions,
		Start:    start,
		Days:     m.Days,
	})
}
