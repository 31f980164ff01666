package screentime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/usage"
)

// Method names accepted by Dispatcher.Call.
const (
	MethodRequestPermission        = "requestPermission"
	MethodIsPermissionGranted      = "isPermissionGranted"
	MethodGetInstalledApps         = "getInstalledApps"
	MethodGetUsageTopApps          = "getUsageTopApps"
	MethodGetUsageForApps          = "getUsageForApps"
	MethodGetTotalDeviceUsage      = "getTotalDeviceUsage"
	MethodGetWeeklyDeviceScreen    = "getWeeklyDeviceScreenTime"
	MethodGetCountedDeviceUsage    = "getCountedDeviceUsage"
	MethodGetUsageForDateRange     = "getUsageForDateRange"
	MethodGetScreenTimeLastSixDays = "getScreenTimeForLastSixDays"
	MethodGetDailyUsageBreakdown   = "getDailyUsageBreakdown"
	MethodGetTotalUsageForDate     = "getTotalUsageForDate"
)

// App is the wire form of an app returned by Call.
type App struct {
	Name        string `json:"name"`
	PackageName string `json:"packageName"`
	Icon        []byte `json:"icon,omitempty"`
	UsageMillis int64  `json:"usageMillis,omitempty"`
}

// DateUsage is the wire form of one day's usage returned by Call.
type DateUsage struct {
	Date        string `json:"date"`
	UsageMillis int64  `json:"usageMillis"`
}

type handlerFunc func(ctx context.Context, args Args) (any, error)

// Dispatcher maps named calls with primitive arguments onto the Service.
type Dispatcher struct {
	service  *Service
	handlers map[string]handlerFunc
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over service.
func NewDispatcher(service *Service, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		service: service,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
	d.handlers = map[string]handlerFunc{
		MethodRequestPermission:        d.requestPermission,
		MethodIsPermissionGranted:      d.isPermissionGranted,
		MethodGetInstalledApps:         d.installedApps,
		MethodGetUsageTopApps:          d.usageTopApps,
		MethodGetUsageForApps:          d.usageForApps,
		MethodGetTotalDeviceUsage:      d.totalDeviceUsage,
		MethodGetWeeklyDeviceScreen:    d.weeklyDeviceScreenTime,
		MethodGetCountedDeviceUsage:    d.countedDeviceUsage,
		MethodGetUsageForDateRange:     d.usageForDateRange,
		MethodGetScreenTimeLastSixDays: d.screenTimeForLastSixDays,
		MethodGetDailyUsageBreakdown:   d.dailyUsageBreakdown,
		MethodGetTotalUsageForDate:     d.totalUsageForDate,
	}
	return d
}

// Methods returns the supported method names in sorted order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs method with args. Every failure is returned as an *Error;
// panics inside a handler are recovered and reported as KindNativeError.
func (d *Dispatcher) Call(ctx context.Context, method string, args Args) (result any, err error) {
	start := time.Now()
	handler, ok := d.handlers[method]

	label := method
	if !ok {
		label = "unknown"
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("method", method).
				Interface("panic", r).
				Msg("Recovered panic while handling call")
			result = nil
			err = &Error{
				Kind:    KindNativeError,
				Message: fmt.Sprintf("An unexpected error occurred on the native side: %v", r),
			}
		}

		outcome := "success"
		if err != nil {
			outcome = string(KindOf(err))
		}
		metrics.QueriesTotal.WithLabelValues(label, outcome).Inc()
		metrics.QueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if !ok {
		return nil, newError(KindNotImplemented, "method %q is not implemented", method)
	}

	if method != MethodRequestPermission && method != MethodIsPermissionGranted {
		granted, err := d.service.IsPermissionGranted(ctx)
		if err != nil {
			return nil, d.nativeError(method, err)
		}
		if !granted {
			return nil, newError(KindPermissionDenied, "Usage access permission is not granted.")
		}
	}

	result, err = handler(ctx, args)
	if err != nil {
		var callErr *Error
		if errors.As(err, &callErr) {
			return nil, callErr
		}
		return nil, d.nativeError(method, err)
	}

	d.logger.Debug().Str("method", method).Dur("elapsed", time.Since(start)).Msg("Handled call")
	return result, nil
}

func (d *Dispatcher) nativeError(method string, err error) *Error {
	d.logger.Error().Err(err).Str("method", method).Msg("Error handling call")
	return &Error{
		Kind:    KindNativeError,
		Message: fmt.Sprintf("An unexpected error occurred on the native side: %v", err),
		Err:     err,
	}
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func (d *Dispatcher) requestPermission(ctx context.Context, _ Args) (any, error) {
	return nil, d.service.RequestPermission(ctx)
}

func (d *Dispatcher) isPermissionGranted(ctx context.Context, _ Args) (any, error) {
	return d.service.IsPermissionGranted(ctx)
}

func (d *Dispatcher) installedApps(ctx context.Context, _ Args) (any, error) {
	apps, err := d.service.InstalledApps(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]App, 0, len(apps))
	for _, app := range apps {
		name := app.Name
		if name == "" {
			name = app.ID
		}
		out = append(out, App{Name: name, PackageName: app.ID, Icon: app.Icon})
	}
	return out, nil
}

func appList(apps []AppUsage) []App {
	out := make([]App, 0, len(apps))
	for _, app := range apps {
		out = append(out, App{
			Name:        app.Name,
			PackageName: app.ID,
			Icon:        app.Icon,
			UsageMillis: millis(app.Usage),
		})
	}
	return out
}

func dateList(days []DailyTotal) []DateUsage {
	out := make([]DateUsage, 0, len(days))
	for _, day := range days {
		out = append(out, DateUsage{Date: day.Date, UsageMillis: millis(day.Usage)})
	}
	return out
}

func (d *Dispatcher) usageTopApps(ctx context.Context, _ Args) (any, error) {
	apps, err := d.service.UsageTopApps(ctx)
	if err != nil {
		return nil, err
	}
	return appList(apps), nil
}

func (d *Dispatcher) dailyUsageBreakdown(ctx context.Context, _ Args) (any, error) {
	apps, err := d.service.DailyUsageBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	return appList(apps), nil
}

func (d *Dispatcher) usageForApps(ctx context.Context, args Args) (any, error) {
	ids, ok := args.StringList("packageNames")
	if !ok {
		return nil, newError(KindInvalidArgument, "packageNames argument is missing or not a list.")
	}
	used, err := d.service.UsageForApps(ctx, ids)
	if err != nil {
		return nil, err
	}
	return millis(used), nil
}

func (d *Dispatcher) totalDeviceUsage(ctx context.Context, _ Args) (any, error) {
	used, err := d.service.TotalDeviceUsage(ctx)
	if err != nil {
		return nil, err
	}
	return millis(used), nil
}

func (d *Dispatcher) weeklyDeviceScreenTime(ctx context.Context, _ Args) (any, error) {
	days, err := d.service.WeeklyDeviceScreenTime(ctx)
	if err != nil {
		return nil, err
	}
	return dateList(days), nil
}

func (d *Dispatcher) screenTimeForLastSixDays(ctx context.Context, _ Args) (any, error) {
	days, err := d.service.ScreenTimeForLastSixDays(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(days))
	for _, day := range days {
		out = append(out, millis(day.Usage))
	}
	return out, nil
}

func (d *Dispatcher) countedDeviceUsage(ctx context.Context, args Args) (any, error) {
	goal := usage.Goal{}
	goal.Type, _ = args.String("goalType")
	goal.Tracked, _ = args.StringList("trackedPackages")
	goal.Exempt, _ = args.StringList("exemptPackages")

	used, err := d.service.CountedDeviceUsage(ctx, goal)
	if err != nil {
		return nil, err
	}
	return millis(used), nil
}

func (d *Dispatcher) usageForDateRange(ctx context.Context, args Args) (any, error) {
	start, okStart := args.Int64("startTime")
	end, okEnd := args.Int64("endTime")
	if !okStart || !okEnd {
		return nil, newError(KindInvalidArgument, "startTime or endTime is missing.")
	}
	if end < start {
		return nil, newError(KindInvalidArgument, "endTime is before startTime.")
	}
	days, err := d.service.UsageForDateRange(ctx, time.UnixMilli(start), time.UnixMilli(end))
	if errors.Is(err, ErrRangeTooLong) {
		return nil, newError(KindInvalidArgument, "Date range exceeds %d days.", MaxRangeDays)
	}
	if err != nil {
		return nil, err
	}
	return dateList(days), nil
}

func (d *Dispatcher) totalUsageForDate(ctx context.Context, args Args) (any, error) {
	date, ok := args.Int64("date")
	if !ok {
		return nil, newError(KindInvalidArgument, "date argument is missing or not a Long.")
	}
	used, err := d.service.TotalUsageForDate(ctx, time.UnixMilli(date))
	if err != nil {
		return nil, err
	}
	return millis(used), nil
}
