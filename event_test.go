package musiclake_test

import (
	"testing"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/mock"
	"github.com/pilosa/musiclake/test"
)

func TestEventLogExtractor(t *testing.T) {
	stats := &mock.RecordingStatter{}
	x := &musiclake.EventLogExtractor{Stats: stats}
	log, err := x.Extract(jsonSource(t,
		homeEvent,
		playEvent("26", "free", "Drop of Rain", 1541105830796),
		playEvent("26", "paid", "Drop of Rain", 1541105830796),
		playEvent("26", "paid", "Unknown", 1541105830999),
		playEvent("26", "paid", "Unknown", 1541105830999),
	))
	test.ErrNil(t, err, "Extract")

	test.MustBe(t, 4, log.Plays.Len())
	start := time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)
	test.MustBe(t, []interface{}{start, start, start, start}, mustColumn(t, log.Plays, "start_time"))

	test.MustBe(t, musiclake.UsersSchema.Names(), log.Users.Schema().Names())
	test.MustBe(t, []musiclake.Row{
		{"26", "Ryan", "Smith", "M", "free"},
		{"26", "Ryan", "Smith", "M", "paid"},
	}, log.Users.Rows())

	test.MustBe(t, musiclake.TimeSchema, log.Time.Schema())
	test.MustBe(t, []musiclake.Row{
		{start, int32(20), int32(1), int32(44), int32(11), int32(2018), int32(5), int64(1541105830796)},
		{start, int32(20), int32(1), int32(44), int32(11), int32(2018), int32(5), int64(1541105830999)},
	}, log.Time.Rows())

	test.MustBe(t, int64(5), stats.Total("events.records"))
	test.MustBe(t, int64(1), stats.Total("events.skipped"))
	test.MustBe(t, int64(2), stats.Total("users.rows"))
	test.MustBe(t, int64(2), stats.Total("time.rows"))
}

func TestEventLogExtractorMissingField(t *testing.T) {
	_, err := (&musiclake.EventLogExtractor{}).Extract(jsonSource(t,
		`{"page": "NextSong", "userId": "1", "ts": 1541105830796}`,
	))
	if !musiclake.IsMissingField(err) {
		t.Fatalf("expected missing field, got %v", err)
	}

	_, err = (&musiclake.EventLogExtractor{}).Extract(jsonSource(t, `{"userId": "1"}`))
	if !musiclake.IsMissingField(err) {
		t.Fatalf("expected missing page, got %v", err)
	}
}

func TestEventLogExtractorLevelDomain(t *testing.T) {
	_, err := (&musiclake.EventLogExtractor{}).Extract(jsonSource(t,
		playEvent("26", "gold", "Drop of Rain", 1541105830796),
	))
	if !musiclake.IsSchemaViolation(err) {
		t.Fatalf("expected schema violation for level, got %v", err)
	}
}

func TestEventLogExtractorNonPlaysOnly(t *testing.T) {
	log, err := (&musiclake.EventLogExtractor{}).Extract(jsonSource(t, homeEvent))
	test.ErrNil(t, err, "Extract")
	test.MustBe(t, 0, log.Plays.Len())
	test.MustBe(t, 0, log.Users.Len())
	test.MustBe(t, 0, log.Time.Len())
}
