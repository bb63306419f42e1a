// Package clock provides the clinic wall clock. Every "now" comparison, due
// window, and stored timestamp in the scheduling core goes through a Clock
// pinned to the clinic's civil timezone, so slot and reminder boundaries do
// not drift by the UTC offset.
package clock

import "time"

// Clock yields the current time in the clinic's timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type wallClock struct {
	loc *time.Location
}

// NewClinic returns a Clock for the given IANA zone name. An unknown or empty
// zone falls back to UTC rather than failing startup.
func NewClinic(timezone string) Clock {
	return wallClock{loc: Location(timezone)}
}

// Location resolves an IANA zone name, falling back to UTC.
func Location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c wallClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c wallClock) Location() *time.Location { return c.loc }

// Fixed is a Clock frozen at a single instant, for tests.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time           { return f.At }
func (f Fixed) Location() *time.Location { return f.At.Location() }
