package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func moscowCalendar(t *testing.T, holidays ...string) *Calendar {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return NewCalendar(9*time.Hour+15*time.Minute, 15*time.Hour+30*time.Minute, loc, holidays)
}

func TestCalendarSessionWindow(t *testing.T) {
	c := moscowCalendar(t)
	loc, _ := time.LoadLocation("Europe/Moscow")

	monday := time.Date(2026, 2, 2, 12, 0, 0, 0, loc)
	assert.True(t, c.InSession(monday))
	assert.False(t, c.InSession(time.Date(2026, 2, 2, 9, 0, 0, 0, loc)), "before open")
	assert.False(t, c.InSession(time.Date(2026, 2, 2, 16, 0, 0, 0, loc)), "after close")
	assert.False(t, c.InSession(time.Date(2026, 2, 7, 12, 0, 0, 0, loc)), "saturday")
}

func TestCalendarHolidays(t *testing.T) {
	c := moscowCalendar(t, "2026-02-03")
	loc, _ := time.LoadLocation("Europe/Moscow")

	assert.False(t, c.IsTradingDay(time.Date(2026, 2, 3, 12, 0, 0, 0, loc)))
	assert.True(t, c.IsTradingDay(time.Date(2026, 2, 4, 12, 0, 0, 0, loc)))
}

func TestCalendarBackfillRange(t *testing.T) {
	c := moscowCalendar(t, "2026-02-02")
	loc, _ := time.LoadLocation("Europe/Moscow")

	// Tuesday after a Monday holiday: the last trading day is Friday
	now := time.Date(2026, 2, 3, 11, 0, 0, 0, loc)
	from, to := c.BackfillRange(now)
	assert.Equal(t, time.Date(2026, 1, 30, 9, 15, 0, 0, loc), from)
	assert.Equal(t, now, to)
}
