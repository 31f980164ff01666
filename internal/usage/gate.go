package usage

import (
	"context"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/interval"
	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/rs/zerolog"
)

// GateIntervals holds the device-state intervals that bound countable time.
type GateIntervals struct {
	Screen        interval.List
	Unlocked      interval.List
	Gate          interval.List
	ScreenMissing bool
	UnlockMissing bool
}

// Gate intersects active time with screen-on and unlocked time.
type Gate struct {
	reducer *Reducer
	logger  zerolog.Logger
}

// NewGate creates a gate over the reducer's event source.
func NewGate(reducer *Reducer, logger zerolog.Logger) *Gate {
	return &Gate{
		reducer: reducer,
		logger:  logger.With().Str("component", "usage-gate").Logger(),
	}
}

// Intervals computes screen ∩ unlocked for [lo, hi). Without any screen
// intervals the gate is empty. Without any unlock intervals the device is
// assumed unlocked for the whole window.
func (g *Gate) Intervals(ctx context.Context, lo, hi int64) (GateIntervals, error) {
	screen, err := g.reducer.ToggleIntervals(ctx, events.ScreenOn, events.ScreenOff, lo, hi)
	if err != nil {
		return GateIntervals{}, err
	}
	if len(screen) == 0 {
		metrics.GateFallbacks.WithLabelValues("no_screen").Inc()
		return GateIntervals{
			Screen:        screen,
			Unlocked:      interval.List{},
			Gate:          interval.List{},
			ScreenMissing: true,
		}, nil
	}

	unlocked, err := g.reducer.ToggleIntervals(ctx, events.Unlock, events.Lock, lo, hi)
	if err != nil {
		return GateIntervals{}, err
	}
	unlockMissing := false
	if len(unlocked) == 0 {
		metrics.GateFallbacks.WithLabelValues("no_unlock").Inc()
		unlocked = interval.Whole(lo, hi)
		unlockMissing = true
	}

	return GateIntervals{
		Screen:        screen,
		Unlocked:      unlocked,
		Gate:          interval.IntersectMerged(screen, unlocked),
		UnlockMissing: unlockMissing,
	}, nil
}

// GateAndSum returns the active time inside the gate for [lo, hi). The result
// never exceeds the total gate time; if it would, the excess is dropped and a
// warning logged.
func (g *Gate) GateAndSum(ctx context.Context, active interval.List, lo, hi int64) (GateResult, error) {
	gi, err := g.Intervals(ctx, lo, hi)
	if err != nil {
		return GateResult{}, err
	}
	if gi.ScreenMissing {
		return GateResult{ScreenMissing: true}, nil
	}

	counted := interval.IntersectMerged(interval.Merge(active), gi.Gate)
	countedMs := interval.Sum(counted)
	gateMs := interval.Sum(gi.Gate)

	res := GateResult{
		Counted:       countedMs,
		GateTotal:     gateMs,
		UnlockMissing: gi.UnlockMissing,
	}
	if countedMs > gateMs {
		g.logger.Warn().
			Int64("counted_ms", countedMs).
			Int64("gate_ms", gateMs).
			Int64("lo", lo).
			Int64("hi", hi).
			Msg("Counted time exceeds gate time, clamping")
		metrics.GateClampApplied.Inc()
		res.Counted = gateMs
		res.Clamped = true
	}

	return res, nil
}
