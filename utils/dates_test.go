package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddCalendarMonthsClampsMonthEnd(t *testing.T) {
	// Leap year: Jan 31 + 1 month lands on Feb 29, not Mar 2.
	jan31 := time.Date(2024, time.January, 31, 9, 30, 0, 0, time.UTC)
	got := AddCalendarMonths(jan31, 1)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 30, 0, 0, time.UTC), got)

	// Non-leap year clamps to Feb 28.
	jan31 = time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC), AddCalendarMonths(jan31, 1))

	aug31 := time.Date(2024, time.August, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.September, 30, 12, 0, 0, 0, time.UTC), AddCalendarMonths(aug31, 1))
}

func TestAddCalendarMonthsPlainDays(t *testing.T) {
	mid := time.Date(2024, time.March, 15, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.April, 15, 3, 4, 5, 0, time.UTC), AddCalendarMonths(mid, 1))
}

func TestAddCalendarMonthsYearRollover(t *testing.T) {
	dec := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), AddCalendarMonths(dec, 1))
}

func TestAddCalendarMonthsKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skip("tzdata not available")
	}
	seoul := time.Date(2024, time.May, 31, 23, 59, 0, 0, loc)
	got := AddCalendarMonths(seoul, 1)
	assert.Equal(t, time.Date(2024, time.June, 30, 23, 59, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}
