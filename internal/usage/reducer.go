package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/interval"
	"github.com/rs/zerolog"
)

const (
	// DefaultLookback is how far before a window the event log is read to pick
	// up sessions that were already open at the window start.
	DefaultLookback = 12 * time.Hour
)

// Reducer turns the ordered event log into interval lists.
type Reducer struct {
	source   events.Source
	lookback time.Duration
	logger   zerolog.Logger
}

// NewReducer creates a reducer over source.
func NewReducer(source events.Source, lookback time.Duration, logger zerolog.Logger) *Reducer {
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	return &Reducer{
		source:   source,
		lookback: lookback,
		logger:   logger.With().Str("component", "usage-reducer").Logger(),
	}
}

// query reads [lo - lookback, hi) from the event source.
func (r *Reducer) query(ctx context.Context, lo, hi int64) ([]events.Event, error) {
	from := lo - r.lookback.Milliseconds()
	evs, err := r.source.QueryEvents(ctx, from, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return evs, nil
}

// ToggleIntervals builds the merged intervals during which a device state was
// on, using on/off as the opening and closing event types. Repeated on events
// keep the earliest open time; an off without a preceding on is ignored. A
// state still on at the end of the scan is closed at hi.
func (r *Reducer) ToggleIntervals(ctx context.Context, on, off events.Type, lo, hi int64) (interval.List, error) {
	evs, err := r.query(ctx, lo, hi)
	if err != nil {
		return nil, err
	}

	out := interval.List{}
	var openedAt int64
	open := false

	for _, ev := range evs {
		switch ev.Type {
		case on:
			if !open {
				openedAt = ev.Timestamp
				open = true
			}
		case off:
			if open {
				out = interval.ClipAndCollect(out, openedAt, ev.Timestamp, lo, hi)
				open = false
			}
		}
	}
	if open {
		out = interval.ClipAndCollect(out, openedAt, hi, lo, hi)
	}

	merged := interval.Merge(out)

	r.logger.Debug().
		Str("on", on.String()).
		Str("off", off.String()).
		Int("events", len(evs)).
		Int("intervals", len(merged)).
		Msg("Built toggle intervals")

	return merged, nil
}

// SubjectActiveIntervals builds the union of foreground intervals for every
// subject accepted by incl. Different subjects may be open at the same time;
// their overlap is counted once.
func (r *Reducer) SubjectActiveIntervals(ctx context.Context, lo, hi int64, incl Inclusion) (interval.List, error) {
	evs, err := r.query(ctx, lo, hi)
	if err != nil {
		return nil, err
	}

	out := interval.List{}
	openSince := make(map[string]int64)

	for _, ev := range evs {
		if ev.Subject == "" || !incl.Includes(ev.Subject) {
			continue
		}
		switch ev.Type {
		case events.SubjectActiveStart:
			if _, ok := openSince[ev.Subject]; !ok {
				openSince[ev.Subject] = ev.Timestamp
			}
		case events.SubjectActiveStop:
			start, ok := openSince[ev.Subject]
			if !ok {
				continue
			}
			delete(openSince, ev.Subject)
			out = interval.ClipAndCollect(out, start, ev.Timestamp, lo, hi)
		}
	}
	for _, start := range openSince {
		out = interval.ClipAndCollect(out, start, hi, lo, hi)
	}

	merged := interval.Merge(out)

	r.logger.Debug().
		Str("inclusion", incl.Kind.String()).
		Int("events", len(evs)).
		Int("still_open", len(openSince)).
		Int("intervals", len(merged)).
		Msg("Built subject active intervals")

	return merged, nil
}

// SubjectTotals accumulates raw, ungated foreground milliseconds per subject
// accepted by incl. Every subject that started a session in the scanned range
// gets an entry, even when none of its time falls inside [lo, hi).
func (r *Reducer) SubjectTotals(ctx context.Context, lo, hi int64, incl Inclusion) (map[string]int64, error) {
	evs, err := r.query(ctx, lo, hi)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	openSince := make(map[string]int64)

	for _, ev := range evs {
		if ev.Subject == "" || !incl.Includes(ev.Subject) {
			continue
		}
		switch ev.Type {
		case events.SubjectActiveStart:
			if _, ok := totals[ev.Subject]; !ok {
				totals[ev.Subject] = 0
			}
			if _, ok := openSince[ev.Subject]; !ok {
				openSince[ev.Subject] = ev.Timestamp
			}
		case events.SubjectActiveStop:
			start, ok := openSince[ev.Subject]
			if !ok {
				continue
			}
			delete(openSince, ev.Subject)
			totals[ev.Subject] += clippedLength(start, ev.Timestamp, lo, hi)
		}
	}
	for subject, start := range openSince {
		totals[subject] += clippedLength(start, hi, lo, hi)
	}

	return totals, nil
}

func clippedLength(start, end, lo, hi int64) int64 {
	return interval.Sum(interval.ClipAndCollect(nil, start, end, lo, hi))
}
