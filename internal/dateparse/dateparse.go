// Package dateparse parses patient-supplied date and time strings against an
// explicit, ordered list of accepted layouts. There is no regex fallback and
// no best-guessing: either one of the layouts matches, or the caller gets a
// typed *ParseError naming everything that was tried.
package dateparse

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for a full date-time, tried in order. Brazilian clinics
// write dates day-first.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 15h04",
	"02/01/2006 15h",
	"2006-01-02 15:04",
}

// Layouts accepted for a bare date.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"02/01",
}

// ParseError reports that a value matched none of the accepted layouts.
type ParseError struct {
	Input   string
	Layouts []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dateparse: %q matches none of the accepted formats [%s]",
		e.Input, strings.Join(e.Layouts, ", "))
}

// DateTime parses a date-time string in the given location. Layouts carrying
// their own offset (RFC3339) are converted into loc; naive layouts are read
// as wall time in loc.
func DateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateTimeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.In(loc), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: raw, Layouts: dateTimeLayouts}
}

// Date parses a bare date in loc. Layouts without a year ("02/01") resolve to
// the next occurrence on or after ref.
func Date(raw string, loc *time.Location, ref time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") && !strings.Contains(layout, "06") {
			t = time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			if t.Before(time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)) {
				t = t.AddDate(1, 0, 0)
			}
		}
		return t, nil
	}
	return time.Time{}, &ParseError{Input: raw, Layouts: dateLayouts}
}
