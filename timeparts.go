package musiclake

import "time"

// StartTime converts ts, in milliseconds since the Unix epoch, to a UTC
// timestamp. Sub-second precision is discarded by flooring to the second.
func StartTime(ts int64) time.Time {
	sec := ts / 1000
	if ts%1000 < 0 {
		sec--
	}
	return time.Unix(sec, 0).UTC()
}

// TimeParts is the decomposition of a timestamp stored in the time dimension.
type TimeParts struct {
	Hour  int32 // 0-23
	Day   int32 // day of month, 1-31
	Week  int32 // ISO 8601 week of year, 1-53
	Month int32 // 1-12
	Year  int32
	// Weekday numbers days from 1=Sunday to 7=Saturday.
	Weekday int32
}

// Decompose splits t, taken in UTC, into its TimeParts.
func Decompose(t time.Time) TimeParts {
	t = t.UTC()
	_, week := t.ISOWeek()
	return TimeParts{
		Hour:    int32(t.Hour()),
		Day:     int32(t.Day()),
		Week:    int32(week),
		Month:   int32(t.Month()),
		Year:    int32(t.Year()),
		Weekday: int32(t.Weekday()) + 1,
	}
}
