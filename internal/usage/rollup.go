package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/daywindow"
	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/rs/zerolog"
)

// DayCounter computes the capped, gated usage of the local day containing
// instant.
type DayCounter interface {
	CountedUsageForDate(ctx context.Context, instant time.Time, goal Goal) (time.Duration, error)
}

// RollupConfig holds daily rollup configuration
type RollupConfig struct {
	RunTime       string // HH:MM local time
	RetentionDays int
	BackfillDays  int
	Goal          Goal
}

// RollupReport summarises one rollup run
type RollupReport struct {
	Created       []string
	Existing      []string
	EventsPruned  int
	ResultsPruned int
}

// Rollup records each completed day's usage once and prunes old data
type Rollup struct {
	counter       DayCounter
	results       storage.ResultStore
	events        storage.EventStore
	resolver      *daywindow.Resolver
	runTime       time.Time // Only hour and minute are used
	retentionDays int
	backfillDays  int
	goal          Goal
	logger        zerolog.Logger
	stopChan      chan struct{}
}

// NewRollup creates a new rollup scheduler
func NewRollup(counter DayCounter, results storage.ResultStore, evs storage.EventStore, resolver *daywindow.Resolver, cfg RollupConfig, logger zerolog.Logger) (*Rollup, error) {
	// Parse run time (HH:MM format)
	parsedTime, err := time.Parse("15:04", cfg.RunTime)
	if err != nil {
		return nil, fmt.Errorf("invalid rollup run time %q: %w", cfg.RunTime, err)
	}
	if cfg.BackfillDays <= 0 {
		cfg.BackfillDays = 1
	}

	return &Rollup{
		counter:       counter,
		results:       results,
		events:        evs,
		resolver:      resolver,
		runTime:       parsedTime,
		retentionDays: cfg.RetentionDays,
		backfillDays:  cfg.BackfillDays,
		goal:          cfg.Goal,
		logger:        logger.With().Str("component", "rollup").Logger(),
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the rollup scheduler
func (r *Rollup) Start() {
	go r.run()
	r.logger.Info().
		Str("run_time", r.runTime.Format("15:04")).
		Str("timezone", r.resolver.Location().String()).
		Msg("Daily rollup scheduler started")
}

// Stop stops the rollup scheduler
func (r *Rollup) Stop() {
	close(r.stopChan)
	r.logger.Info().Msg("Daily rollup scheduler stopped")
}

// run is the main scheduler loop
func (r *Rollup) run() {
	for {
		nextRun := r.calculateNextRun()
		waitDuration := nextRun.Sub(r.resolver.Now())

		r.logger.Info().
			Time("next_run", nextRun).
			Dur("wait_duration", waitDuration).
			Msg("Scheduled next daily rollup")

		select {
		case <-time.After(waitDuration):
			if _, err := r.RunOnce(context.Background()); err != nil {
				r.logger.Error().Err(err).Msg("Daily rollup failed")
			}
		case <-r.stopChan:
			return
		}
	}
}

// calculateNextRun returns the next local run time after now
func (r *Rollup) calculateNextRun() time.Time {
	now := r.resolver.Now()

	todayRun := time.Date(
		now.Year(), now.Month(), now.Day(),
		r.runTime.Hour(), r.runTime.Minute(), 0, 0,
		r.resolver.Location(),
	)

	// If we've already passed today's run time, schedule for tomorrow
	if !now.Before(todayRun) {
		return todayRun.AddDate(0, 0, 1)
	}

	return todayRun
}

// RunOnce records any missing completed days and applies retention
func (r *Rollup) RunOnce(ctx context.Context) (RollupReport, error) {
	report, err := r.runOnce(ctx)
	if err != nil {
		metrics.RollupRuns.WithLabelValues("error").Inc()
		return report, err
	}
	metrics.RollupRuns.WithLabelValues("success").Inc()
	return report, nil
}

func (r *Rollup) runOnce(ctx context.Context) (RollupReport, error) {
	var report RollupReport

	r.logger.Info().Int("backfill_days", r.backfillDays).Msg("Performing daily rollup")

	for _, window := range r.resolver.LastNDays(r.backfillDays, false) {
		date := window.Date()

		_, err := r.results.Get(ctx, date)
		if err == nil {
			report.Existing = append(report.Existing, date)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return report, fmt.Errorf("failed to read result for %s: %w", date, err)
		}

		used, err := r.counter.CountedUsageForDate(ctx, window.Start, r.goal)
		if err != nil {
			return report, fmt.Errorf("failed to compute usage for %s: %w", date, err)
		}

		result := storage.DailyResult{
			Date:        date,
			UsageMillis: used.Milliseconds(),
			GoalType:    r.goal.Type,
			Timezone:    r.resolver.Location().String(),
			ComputedAt:  r.resolver.Now().UTC(),
		}
		if err := r.results.Create(ctx, result); err != nil {
			if errors.Is(err, storage.ErrExists) {
				report.Existing = append(report.Existing, date)
				continue
			}
			return report, fmt.Errorf("failed to store result for %s: %w", date, err)
		}

		metrics.LastDayUsageMinutes.Set(float64(result.UsageMinutes()))
		report.Created = append(report.Created, date)

		r.logger.Info().
			Str("date", date).
			Int64("usage_minutes", result.UsageMinutes()).
			Str("goal_type", r.goal.Type).
			Msg("Recorded daily usage")
	}

	if r.retentionDays <= 0 {
		return report, nil
	}

	cutoff := r.resolver.Midnight(r.resolver.Now()).AddDate(0, 0, -r.retentionDays)

	eventsDeleted, err := r.events.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("failed to prune events: %w", err)
	}
	report.EventsPruned = eventsDeleted
	metrics.EventsPruned.Add(float64(eventsDeleted))

	cutoffDate := cutoff.Format(daywindow.DateLayout)
	resultsDeleted, err := r.results.DeleteBefore(ctx, cutoffDate)
	if err != nil {
		return report, fmt.Errorf("failed to prune results: %w", err)
	}
	report.ResultsPruned = resultsDeleted

	r.logger.Info().
		Int("events_deleted", eventsDeleted).
		Int("results_deleted", resultsDeleted).
		Str("cutoff_date", cutoffDate).
		Msg("Daily rollup complete, old data cleaned up")

	return report, nil
}
