package services

import "time"

// Clock supplies wall-clock time in the planner's authoritative timezone.
// Every "today" and "this week" window is computed from it.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock builds a Clock. A nil now uses time.Now and a nil loc uses time.Local.
func NewClock(now func() time.Time, loc *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return Clock{now: now, loc: loc}
}

// Now returns the current instant in the clock's location
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().In(c.Location())
	}
	return c.now().In(c.Location())
}

// Location returns the authoritative timezone
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// StartOfDay returns local midnight of the day t falls on
func (c Clock) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// DateString formats the local calendar date of t as YYYY-MM-DD
func (c Clock) DateString(t time.Time) string {
	return t.In(c.Location()).Format(time.DateOnly)
}

// calendarDaysBetween counts whole calendar days from a to b, ignoring the
// time of day and DST length changes.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
