// Package screentime exposes named screen-time queries over the usage engine.
package screentime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/screenpledge/internal/catalog"
	"github.com/goodtune/screenpledge/internal/daywindow"
	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/goodtune/screenpledge/internal/usage"
)

const (
	// DayCap bounds every per-day figure returned to callers.
	DayCap = 24 * time.Hour

	// TopAppsLimit is the number of apps returned by UsageTopApps.
	TopAppsLimit = 20

	// MaxRangeDays bounds the number of days UsageForDateRange returns.
	MaxRangeDays = 366

	topAppsPeriod = 7 * 24 * time.Hour
)

// ErrRangeTooLong is returned when a date range spans more than MaxRangeDays.
var ErrRangeTooLong = errors.New("date range too long")

// AppCatalog resolves installed apps and their display metadata.
type AppCatalog interface {
	InstalledApps(ctx context.Context) ([]storage.App, error)
	DisplayMetadata(ctx context.Context, id string) (catalog.Metadata, error)
}

// DailyTotal is the usage of one local calendar day.
type DailyTotal struct {
	Date  string
	Usage time.Duration
}

// AppUsage is one subject's raw foreground time with display metadata.
type AppUsage struct {
	ID    string
	Name  string
	Icon  []byte
	Usage time.Duration
}

// DayUsage is one local day's gated device total with its raw per-app
// breakdown, most used first.
type DayUsage struct {
	Date   string
	Device time.Duration
	Apps   []AppUsage
}

// Service answers screen-time queries.
type Service struct {
	engine     *usage.Engine
	resolver   *daywindow.Resolver
	launchable *LaunchableCache
	catalog    AppCatalog
	permission *Permission
	logger     zerolog.Logger
}

// NewService creates a query service.
func NewService(engine *usage.Engine, resolver *daywindow.Resolver, launchable *LaunchableCache, cat AppCatalog, permission *Permission, logger zerolog.Logger) *Service {
	return &Service{
		engine:     engine,
		resolver:   resolver,
		launchable: launchable,
		catalog:    cat,
		permission: permission,
		logger:     logger.With().Str("component", "screentime").Logger(),
	}
}

// Launchable returns the service's launchable subject cache.
func (s *Service) Launchable() *LaunchableCache {
	return s.launchable
}

// bounds converts w to epoch milliseconds, ending no later than now.
func (s *Service) bounds(w daywindow.Window) (lo, hi int64) {
	lo, hi = w.Bounds()
	if now := s.resolver.Now().UnixMilli(); hi > now {
		hi = now
	}
	return lo, hi
}

func (s *Service) capDay(d time.Duration, date string) time.Duration {
	if d <= DayCap {
		return d
	}
	metrics.DayCapApplied.Inc()
	s.logger.Warn().
		Str("date", date).
		Dur("usage", d).
		Msg("Day total exceeds 24h, capping")
	return DayCap
}

func (s *Service) inclusion(ctx context.Context, goal usage.Goal) (usage.Inclusion, error) {
	launchable, err := s.launchable.Get(ctx)
	if err != nil {
		return usage.Inclusion{}, err
	}
	return usage.InclusionForGoal(goal, launchable), nil
}

// countedForWindow returns the capped, gated usage for w under goal.
func (s *Service) countedForWindow(ctx context.Context, w daywindow.Window, goal usage.Goal) (time.Duration, error) {
	lo, hi := s.bounds(w)
	if hi <= lo {
		return 0, nil
	}
	incl, err := s.inclusion(ctx, goal)
	if err != nil {
		return 0, err
	}
	res, err := s.engine.Counted(ctx, lo, hi, incl)
	if err != nil {
		return 0, err
	}
	return s.capDay(res.Duration(), w.Date()), nil
}

// rawForWindow returns ungated per-subject totals for launchable subjects.
func (s *Service) rawForWindow(ctx context.Context, lo, hi int64) (map[string]int64, error) {
	if hi <= lo {
		return map[string]int64{}, nil
	}
	launchable, err := s.launchable.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Reducer().SubjectTotals(ctx, lo, hi, usage.AllLaunchable(launchable))
}

func (s *Service) dailyTotals(ctx context.Context, windows []daywindow.Window) ([]DailyTotal, error) {
	out := make([]DailyTotal, 0, len(windows))
	for _, w := range windows {
		d, err := s.countedForWindow(ctx, w, usage.Goal{})
		if err != nil {
			return nil, fmt.Errorf("usage for %s: %w", w.Date(), err)
		}
		out = append(out, DailyTotal{Date: w.Date(), Usage: d})
	}
	return out, nil
}

// TotalDeviceUsage returns today's gated usage across launchable apps.
func (s *Service) TotalDeviceUsage(ctx context.Context) (time.Duration, error) {
	return s.countedForWindow(ctx, s.resolver.Today(), usage.Goal{})
}

// TotalUsageForDate returns the gated usage of the local day containing
// instant.
func (s *Service) TotalUsageForDate(ctx context.Context, instant time.Time) (time.Duration, error) {
	return s.countedForWindow(ctx, s.resolver.ForDate(instant), usage.Goal{})
}

// WeeklyDeviceScreenTime returns the last seven local days, today included,
// oldest first.
func (s *Service) WeeklyDeviceScreenTime(ctx context.Context) ([]DailyTotal, error) {
	return s.dailyTotals(ctx, s.resolver.LastNDays(7, true))
}

// ScreenTimeForLastSixDays returns the six completed local days before
// today, oldest first.
func (s *Service) ScreenTimeForLastSixDays(ctx context.Context) ([]DailyTotal, error) {
	return s.dailyTotals(ctx, s.resolver.LastNDays(6, false))
}

// CountedDeviceUsage returns today's gated usage of the subjects goal counts.
func (s *Service) CountedDeviceUsage(ctx context.Context, goal usage.Goal) (time.Duration, error) {
	return s.countedForWindow(ctx, s.resolver.Today(), goal)
}

// CountedUsageForDate returns the gated usage of the subjects goal counts on
// the local day containing instant.
func (s *Service) CountedUsageForDate(ctx context.Context, instant time.Time, goal usage.Goal) (time.Duration, error) {
	return s.countedForWindow(ctx, s.resolver.ForDate(instant), goal)
}

// UsageForDay returns the device total and app breakdown for the local day w.
func (s *Service) UsageForDay(ctx context.Context, w daywindow.Window) (DayUsage, error) {
	day := DayUsage{Date: w.Date(), Apps: []AppUsage{}}
	lo, hi := s.bounds(w)
	if hi <= lo {
		return day, nil
	}
	launchable, err := s.launchable.Get(ctx)
	if err != nil {
		return DayUsage{}, err
	}
	ru, err := s.engine.RangeUsage(ctx, lo, hi, usage.AllLaunchable(launchable))
	if err != nil {
		return DayUsage{}, err
	}
	day.Device = s.capDay(time.Duration(ru.DeviceTotal)*time.Millisecond, day.Date)
	if day.Apps, err = s.describe(ctx, ru.PerSubject, 0); err != nil {
		return DayUsage{}, err
	}
	return day, nil
}

// UsageForApps returns today's raw foreground time summed over ids.
func (s *Service) UsageForApps(ctx context.Context, ids []string) (time.Duration, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	w := s.resolver.Today()
	lo, hi := s.bounds(w)
	perSubject, err := s.rawForWindow(ctx, lo, hi)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, id := range ids {
		total += perSubject[id]
	}
	return s.capDay(time.Duration(total)*time.Millisecond, w.Date()), nil
}

// UsageForDateRange returns, for every local day from the day of start to the
// day of end, the raw foreground time summed over launchable apps. Days after
// today are not reported.
func (s *Service) UsageForDateRange(ctx context.Context, start, end time.Time) ([]DailyTotal, error) {
	if now := s.resolver.Now(); end.After(now) {
		end = now
	}
	if end.Before(start) {
		return []DailyTotal{}, nil
	}
	limit := s.resolver.Midnight(start).AddDate(0, 0, MaxRangeDays)
	if !s.resolver.Midnight(end).Before(limit) {
		return nil, fmt.Errorf("%w: more than %d days from %s", ErrRangeTooLong,
			MaxRangeDays, start.In(s.resolver.Location()).Format(daywindow.DateLayout))
	}

	windows := s.resolver.Range(start, end)
	out := make([]DailyTotal, 0, len(windows))
	for _, w := range windows {
		lo, hi := s.bounds(w)
		perSubject, err := s.rawForWindow(ctx, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("usage for %s: %w", w.Date(), err)
		}
		var total int64
		for _, ms := range perSubject {
			total += ms
		}
		out = append(out, DailyTotal{
			Date:  w.Date(),
			Usage: s.capDay(time.Duration(total)*time.Millisecond, w.Date()),
		})
	}
	return out, nil
}

// DailyUsageBreakdown returns today's apps with foreground time, most used
// first.
func (s *Service) DailyUsageBreakdown(ctx context.Context) ([]AppUsage, error) {
	lo, hi := s.bounds(s.resolver.Today())
	perSubject, err := s.rawForWindow(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, perSubject, 0)
}

// UsageTopApps returns up to TopAppsLimit launchable apps by foreground time
// over the last seven days.
func (s *Service) UsageTopApps(ctx context.Context) ([]AppUsage, error) {
	now := s.resolver.Now()
	perSubject, err := s.rawForWindow(ctx, now.Add(-topAppsPeriod).UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, perSubject, TopAppsLimit)
}

// describe attaches display metadata to subjects with positive usage, sorted
// by usage descending. Subjects missing from the catalog are skipped.
func (s *Service) describe(ctx context.Context, perSubject map[string]int64, limit int) ([]AppUsage, error) {
	out := make([]AppUsage, 0, len(perSubject))
	for id, ms := range perSubject {
		if ms <= 0 {
			continue
		}
		out = append(out, AppUsage{ID: id, Usage: time.Duration(ms) * time.Millisecond})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Usage != out[j].Usage {
			return out[i].Usage > out[j].Usage
		}
		return out[i].ID < out[j].ID
	})

	described := make([]AppUsage, 0, len(out))
	for _, app := range out {
		if limit > 0 && len(described) == limit {
			break
		}
		md, err := s.catalog.DisplayMetadata(ctx, app.ID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Str("subject", app.ID).Msg("No display metadata, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		app.Name = md.Name
		app.Icon = md.Icon
		described = append(described, app)
	}
	return described, nil
}

// InstalledApps returns launchable apps ordered by name.
func (s *Service) InstalledApps(ctx context.Context) ([]storage.App, error) {
	return s.catalog.InstalledApps(ctx)
}

// IsPermissionGranted reports whether usage events can be read.
func (s *Service) IsPermissionGranted(ctx context.Context) (bool, error) {
	return s.permission.Granted(ctx)
}

// RequestPermission records usage access and invalidates the launchable cache.
func (s *Service) RequestPermission(ctx context.Context) error {
	if err := s.permission.Request(ctx); err != nil {
		return err
	}
	s.launchable.Invalidate()
	return nil
}
