package musiclake_test

import (
	"testing"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/test"
)

func TestStartTime(t *testing.T) {
	tests := []struct {
		ts   int64
		want time.Time
	}{
		{ts: 1541105830796, want: time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)},
		{ts: 1541105830000, want: time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)},
		{ts: 1541105830999, want: time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)},
		{ts: 0, want: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ts: -1, want: time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)},
	}
	for _, tst := range tests {
		got := musiclake.StartTime(tst.ts)
		if !got.Equal(tst.want) {
			t.Errorf("StartTime(%d) = %v, want %v", tst.ts, got, tst.want)
		}
		if got.Location() != time.UTC {
			t.Errorf("StartTime(%d) is in %v, not UTC", tst.ts, got.Location())
		}
	}
}

func TestDecompose(t *testing.T) {
	parts := musiclake.Decompose(musiclake.StartTime(1541105830796))
	// 2018-11-01T20:57:10Z was a Thursday in ISO week 44.
	test.MustBe(t, musiclake.TimeParts{
		Hour:    20,
		Day:     1,
		Week:    44,
		Month:   11,
		Year:    2018,
		Weekday: 5,
	}, parts)

	sunday := musiclake.Decompose(time.Date(2018, 11, 4, 0, 0, 0, 0, time.UTC))
	if sunday.Weekday != 1 {
		t.Errorf("Sunday should be weekday 1, got %d", sunday.Weekday)
	}
	saturday := musiclake.Decompose(time.Date(2018, 11, 3, 23, 59, 59, 0, time.UTC))
	if saturday.Weekday != 7 {
		t.Errorf("Saturday should be weekday 7, got %d", saturday.Weekday)
	}

	// 2018-12-31 belongs to ISO week 1 of 2019; the year column stays 2018.
	nye := musiclake.Decompose(time.Date(2018, 12, 31, 12, 0, 0, 0, time.UTC))
	if nye.Week != 1 || nye.Year != 2018 {
		t.Errorf("unexpected parts for 2018-12-31: %+v", nye)
	}
}
