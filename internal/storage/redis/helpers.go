package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/storage"
)

// parseEventMember decodes a "<seq>|<json>" event log member
func parseEventMember(member string) (events.Event, error) {
	_, payload, ok := strings.Cut(member, "|")
	if !ok {
		return events.Event{}, fmt.Errorf("malformed event member %q", member)
	}
	var ev events.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return events.Event{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return ev, nil
}

// parseApp converts a Redis hash to App
func parseApp(data map[string]string) (*storage.App, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	launchable, err := strconv.ParseBool(data["launchable"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse launchable: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	app := &storage.App{
		ID:         data["id"],
		Name:       data["name"],
		Launchable: launchable,
		UpdatedAt:  updatedAt,
	}
	if icon := data["icon"]; icon != "" {
		app.Icon = []byte(icon)
	}
	return app, nil
}

// parseDailyResult converts a Redis hash to DailyResult
func parseDailyResult(data map[string]string) (*storage.DailyResult, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	usageMillis, err := strconv.ParseInt(data["usage_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usage_ms: %w", err)
	}

	computedAt, err := time.Parse(time.RFC3339Nano, data["computed_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse computed_at: %w", err)
	}

	return &storage.DailyResult{
		Date:        data["date"],
		UsageMillis: usageMillis,
		GoalType:    data["goal_type"],
		Timezone:    data["timezone"],
		ComputedAt:  computedAt,
	}, nil
}
