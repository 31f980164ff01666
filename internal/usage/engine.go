package usage

import (
	"context"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/rs/zerolog"
)

// Engine computes gated usage for arbitrary windows.
type Engine struct {
	reducer *Reducer
	gate    *Gate
}

// NewEngine wires a reducer and gate over source.
func NewEngine(source events.Source, lookback time.Duration, logger zerolog.Logger) *Engine {
	reducer := NewReducer(source, lookback, logger)
	return &Engine{
		reducer: reducer,
		gate:    NewGate(reducer, logger),
	}
}

// Reducer returns the underlying reducer.
func (e *Engine) Reducer() *Reducer {
	return e.reducer
}

// Gate returns the underlying gate.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// Counted returns the gated active time for [lo, hi) under incl.
func (e *Engine) Counted(ctx context.Context, lo, hi int64, incl Inclusion) (GateResult, error) {
	active, err := e.reducer.SubjectActiveIntervals(ctx, lo, hi, incl)
	if err != nil {
		return GateResult{}, err
	}
	return e.gate.GateAndSum(ctx, active, lo, hi)
}

// RangeUsage returns raw per-subject totals together with the gated device
// total for [lo, hi).
func (e *Engine) RangeUsage(ctx context.Context, lo, hi int64, incl Inclusion) (RangeUsage, error) {
	perSubject, err := e.reducer.SubjectTotals(ctx, lo, hi, incl)
	if err != nil {
		return RangeUsage{}, err
	}
	res, err := e.Counted(ctx, lo, hi, incl)
	if err != nil {
		return RangeUsage{}, err
	}
	return RangeUsage{PerSubject: perSubject, DeviceTotal: res.Counted}, nil
}
