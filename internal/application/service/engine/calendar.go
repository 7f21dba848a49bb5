package engine

import (
	"time"
)

// Calendar describes the trading session of the tracked venue: daily open
// and close offsets from local midnight plus an exchange-holiday set.
type Calendar struct {
	open     time.Duration
	close    time.Duration
	loc      *time.Location
	holidays map[string]struct{} // yyyy-mm-dd in venue time
}

// NewCalendar builds a calendar. Offsets are measured from local midnight,
// holidays are yyyy-mm-dd strings.
func NewCalendar(open, close time.Duration, loc *time.Location, holidays []string) *Calendar {
	h := make(map[string]struct{}, len(holidays))
	for _, d := range holidays {
		h[d] = struct{}{}
	}
	return &Calendar{open: open, close: close, loc: loc, holidays: h}
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	lt := t.In(c.loc)
	if wd := lt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[lt.Format("2006-01-02")]
	return !holiday
}

// InSession reports whether t is inside the trading window of a trading day.
func (c *Calendar) InSession(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	lt := t.In(c.loc)
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	offset := lt.Sub(midnight)
	return offset >= c.open && offset <= c.close
}

// SessionOpen returns the session start of the day containing t.
func (c *Calendar) SessionOpen(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc).Add(c.open)
}

// LastTradingDay returns the most recent trading day strictly before the day
// containing t.
func (c *Calendar) LastTradingDay(t time.Time) time.Time {
	day := t.In(c.loc)
	for {
		day = day.AddDate(0, 0, -1)
		if c.IsTradingDay(day) {
			return day
		}
	}
}

// BackfillRange is the history window used to seed indicator state for a
// newly tracked contract: from the session open of the last trading day up
// to now.
func (c *Calendar) BackfillRange(now time.Time) (time.Time, time.Time) {
	return c.SessionOpen(c.LastTradingDay(now)), now
}
