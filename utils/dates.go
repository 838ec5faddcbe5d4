package utils

import "time"

// AddCalendarMonths advances t by whole calendar months, clamping the
// day to the target month's last day instead of letting time.AddDate
// roll over (Jan 31 + 1 month must be the last day of February, not
// March 2/3).
func AddCalendarMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Normalize the target month first, then clamp the day.
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	last := lastDayOfMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
