// Package daywindow resolves local-timezone calendar day boundaries.
package daywindow

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for per-day keys.
const DateLayout = "2006-01-02"

// Window is a half-open [Start, End) span of absolute time. Windows built from
// local midnights may be 23 or 25 hours long across DST transitions.
type Window struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the window as epoch milliseconds.
func (w Window) Bounds() (lo, hi int64) {
	return w.Start.UnixMilli(), w.End.UnixMilli()
}

// Length returns the duration of the window.
func (w Window) Length() time.Duration {
	return w.End.Sub(w.Start)
}

// Date returns the local calendar date of the window start.
func (w Window) Date() string {
	return w.Start.Format(DateLayout)
}

// Resolver builds day windows in a fixed location.
type Resolver struct {
	loc   *time.Location
	clock Clock
}

// NewResolver creates a resolver for loc. A nil location means time.Local and
// a nil clock means the system clock.
func NewResolver(loc *time.Location, clock Clock) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Resolver{loc: loc, clock: clock}
}

// Location returns the resolver's timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the current instant in the resolver's timezone.
func (r *Resolver) Now() time.Time {
	return r.clock.Now().In(r.loc)
}

// Midnight returns the local midnight starting the day that contains t.
func (r *Resolver) Midnight(t time.Time) time.Time {
	local := t.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
}

// Today returns local midnight to now.
func (r *Resolver) Today() Window {
	now := r.Now()
	return Window{Start: r.Midnight(now), End: now}
}

// ForDate returns the full local calendar day containing instant.
func (r *Resolver) ForDate(instant time.Time) Window {
	start := r.Midnight(instant)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ForDateString parses a YYYY-MM-DD date in the resolver's timezone.
func (r *Resolver) ForDateString(date string) (Window, error) {
	t, err := time.ParseInLocation(DateLayout, date, r.loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return r.ForDate(t), nil
}

// LastNDays returns n consecutive full local days in ascending order. With
// includeToday the last window is today's full day; otherwise it is
// yesterday. Each window is derived with AddDate from a local midnight so
// DST shifts move the wall-clock boundary correctly.
func (r *Resolver) LastNDays(n int, includeToday bool) []Window {
	if n <= 0 {
		return []Window{}
	}

	today := r.Midnight(r.Now())
	offset := n - 1
	if !includeToday {
		offset = n
	}
	anchor := today.AddDate(0, 0, -offset)

	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		start := anchor.AddDate(0, 0, i)
		out = append(out, Window{Start: start, End: start.AddDate(0, 0, 1)})
	}
	return out
}

// Range returns every full local day from the day containing start up to and
// including the day containing end.
func (r *Resolver) Range(start, end time.Time) []Window {
	out := []Window{}
	if end.Before(start) {
		return out
	}

	last := r.Midnight(end)
	for day := r.Midnight(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		out = append(out, Window{Start: day, End: day.AddDate(0, 0, 1)})
	}
	return out
}
