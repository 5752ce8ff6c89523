// Package system provides clocks for stamping records.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock pinned to one instant. The feeds command uses it to
// evaluate recency as of a given date.
type Fixed struct {
	at time.Time
}

// NewFixed returns a clock that always reports at, converted to UTC.
func NewFixed(at time.Time) *Fixed {
	return &Fixed{at: at.UTC()}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time {
	return f.at
}

// ParseAsOf reads a YYYY-MM-DD date and returns a clock set to the end of that
// day, so entries published during it still count as recent.
func ParseAsOf(raw string) (*Fixed, error) {
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return NewFixed(day.Add(24*time.Hour - time.Second)), nil
}
