package musiclake_test

import (
	"testing"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/mock"
	"github.com/pilosa/musiclake/test"
	"github.com/pkg/errors"
)

func factInputs(t *testing.T, songs ...string) (*musiclake.SongCatalog, *musiclake.EventLog) {
	t.Helper()
	cat, err := musiclake.NewSongCatalogExtractor().Extract(jsonSource(t, songs...))
	test.ErrNil(t, err, "extracting songs")
	log, err := (&musiclake.EventLogExtractor{}).Extract(jsonSource(t,
		homeEvent,
		playEvent("26", "free", "I Didn't Mean To", 1541105830796),
		playEvent("8", "paid", "Drop of Rain", 1543622400000),
		playEvent("8", "paid", "No Such Song", 1543622401000),
	))
	test.ErrNil(t, err, "extracting events")
	return cat, log
}

func TestFactBuilder(t *testing.T) {
	cat, log := factInputs(t, songA, songB)
	stats := &mock.RecordingStatter{}
	b := musiclake.NewFactBuilder()
	b.Stats = stats
	facts, err := b.Build(log.Plays, cat.Songs, log.Time)
	test.ErrNil(t, err, "Build")

	test.MustBe(t, musiclake.SongplaysSchema, facts.Schema())
	test.MustBe(t, []musiclake.Row{
		{int64(0), time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC), "26", "free", int64(0), "ARD7TVE1187B99BFB1", int64(583), "San Jose-Sunnyvale-Santa Clara, CA", "Mozilla/5.0", int32(2018), int32(11)},
		{int64(1), time.Date(2018, 12, 1, 0, 0, 0, 0, time.UTC), "8", "paid", int64(1), "AR5E44Z1187B9A1D74", int64(583), "San Jose-Sunnyvale-Santa Clara, CA", "Mozilla/5.0", int32(2018), int32(12)},
	}, facts.Rows())

	test.MustBe(t, int64(1), stats.Total("songplays.join_miss"))
	test.MustBe(t, int64(0), stats.Total("songplays.fanout"))
	test.MustBe(t, int64(0), stats.Total("songplays.time_miss"))
	test.MustBe(t, int64(2), stats.Total("songplays.rows"))
}

func TestFactBuilderFanout(t *testing.T) {
	cat, log := factInputs(t, songA, songB, songC)
	stats := &mock.RecordingStatter{}
	b := musiclake.NewFactBuilder()
	b.Stats = stats
	facts, err := b.Build(log.Plays, cat.Songs, log.Time)
	test.ErrNil(t, err, "Build")

	test.MustBe(t, 3, facts.Len())
	test.MustBe(t, []interface{}{"ARD7TVE1187B99BFB1", "AR5E44Z1187B9A1D74", "ARGSAFR1269FB35070"}, mustColumn(t, facts, "artist_id"))
	test.MustBe(t, []interface{}{int64(0), int64(1), int64(2)}, mustColumn(t, facts, "songplay_id"))
	test.MustBe(t, int64(1), stats.Total("songplays.fanout"))
}

func TestFactBuilderRejectDuplicateTitles(t *testing.T) {
	cat, log := factInputs(t, songA, songB, songC)
	b := musiclake.NewFactBuilder()
	b.TitlePolicy = musiclake.RejectDuplicateTitles
	_, err := b.Build(log.Plays, cat.Songs, log.Time)
	if errors.Cause(err) != musiclake.ErrDuplicateTitle {
		t.Fatalf("expected duplicate title error, got %v", err)
	}

	cat, log = factInputs(t, songA, songB)
	_, err = b.Build(log.Plays, cat.Songs, log.Time)
	test.ErrNil(t, err, "Build without duplicates")
}

func TestFactBuilderTimeMiss(t *testing.T) {
	cat, log := factInputs(t, songA, songB)
	onlyNov := log.Time.Filter(func(r musiclake.RowView) bool { return r.Get("month") == int32(11) })
	stats := &mock.RecordingStatter{}
	b := &musiclake.FactBuilder{Keys: &musiclake.HashKeys{}, Stats: stats}
	facts, err := b.Build(log.Plays, cat.Songs, onlyNov)
	test.ErrNil(t, err, "Build")
	test.MustBe(t, 1, facts.Len())
	test.MustBe(t, int64(1), stats.Total("songplays.time_miss"))
}

func TestFactBuilderPlaysWithinOneSecond(t *testing.T) {
	cat, err := musiclake.NewSongCatalogExtractor().Extract(jsonSource(t, songB))
	test.ErrNil(t, err, "extracting songs")
	log, err := (&musiclake.EventLogExtractor{}).Extract(jsonSource(t,
		playEvent("8", "paid", "Drop of Rain", 1541105830100),
		playEvent("9", "paid", "Drop of Rain", 1541105830900),
	))
	test.ErrNil(t, err, "extracting events")
	test.MustBe(t, 2, log.Time.Len(), "time keeps both ts")

	facts, err := musiclake.NewFactBuilder().Build(log.Plays, cat.Songs, log.Time)
	test.ErrNil(t, err, "Build")
	test.MustBe(t, 2, facts.Len(), "one fact per play")
}

func TestParseTitlePolicy(t *testing.T) {
	for _, p := range []musiclake.TitlePolicy{musiclake.FanoutTitles, musiclake.RejectDuplicateTitles} {
		got, err := musiclake.ParseTitlePolicy(p.String())
		test.ErrNil(t, err, p.String())
		test.MustBe(t, p, got)
	}
	if _, err := musiclake.ParseTitlePolicy("merge"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
