package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestISOWeekString(t *testing.T) {
	// Thursday 2026-08-20 is in ISO week 34.
	assert.Equal(t, "2026-W34", ISOWeekString(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)))
	// 2027-01-01 is a Friday belonging to ISO week 53 of 2026.
	assert.Equal(t, "2026-W53", ISOWeekString(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	// Single-digit weeks are zero-padded.
	assert.Equal(t, "2026-W01", ISOWeekString(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWeekBounds(t *testing.T) {
	// Thursday mid-week.
	start, end := WeekBounds(time.Date(2026, 8, 20, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), end)

	// Monday maps to itself.
	start, _ = WeekBounds(time.Date(2026, 8, 17, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), start)

	// Sunday is the last day of the same ISO week.
	start, end = WeekBounds(time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekBoundsMatchISOWeek(t *testing.T) {
	// Every instant inside the bounds formats to the same week string.
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	start, end := WeekBounds(now)
	assert.Equal(t, ISOWeekString(now), ISOWeekString(start))
	assert.Equal(t, ISOWeekString(now), ISOWeekString(end.Add(-time.Second)))
	assert.NotEqual(t, ISOWeekString(now), ISOWeekString(end))
}
