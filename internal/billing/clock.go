package billing

import "time"

// Clock supplies the reference instant for a billing run. Open sessions
// billed through-now end on the calendar date of Now, and reports stamp
// their generation time from the same clock.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock in Location, or time.Local when nil.
// Log timestamps are naive local times, so "today" is a local date.
type WallClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location.
func (c WallClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// FixedClock always reports At.
type FixedClock struct {
	At time.Time
}

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time {
	return c.At
}

// Today returns the calendar date of c.Now().
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}
