package storage

import (
	"fmt"
	"time"
)

// DateLayout is the layout of DailyResult dates.
const DateLayout = "2006-01-02"

// Setting keys.
const (
	SettingUsageAccess = "usage_access_granted"
)

// App represents an installed application.
type App struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Launchable bool      `json:"launchable"`
	Icon       []byte    `json:"icon,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DailyResult is the gated usage recorded for one local calendar day.
type DailyResult struct {
	Date        string    `json:"date"`
	UsageMillis int64     `json:"usage_ms"`
	GoalType    string    `json:"goal_type"`
	Timezone    string    `json:"timezone"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Usage returns the recorded usage as a duration.
func (r DailyResult) Usage() time.Duration {
	return time.Duration(r.UsageMillis) * time.Millisecond
}

// UsageMinutes returns the recorded usage rounded down to whole minutes.
func (r DailyResult) UsageMinutes() int64 {
	return r.UsageMillis / int64(time.Minute/time.Millisecond)
}

// ParseDate parses a YYYY-MM-DD result date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}
