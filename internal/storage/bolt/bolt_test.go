package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/storage"
)

func TestEventStoreQueryOrder(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	evs := store.Events()

	if err := evs.Append(ctx,
		events.Event{Type: events.ScreenOn, Timestamp: 2000},
		events.Event{Type: events.SubjectActiveStart, Timestamp: 1000, Subject: "com.example.a"},
		events.Event{Type: events.SubjectActiveStop, Timestamp: 2000, Subject: "com.example.a"},
		events.Event{Type: events.ScreenOff, Timestamp: 5000},
	); err != nil {
		t.Fatalf("append events: %v", err)
	}

	got, err := evs.QueryEvents(ctx, 1000, 5000)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events in [1000, 5000), got %d", len(got))
	}
	if got[0].Timestamp != 1000 {
		t.Fatalf("expected first event at 1000, got %d", got[0].Timestamp)
	}
	// Same timestamp keeps insertion order.
	if got[1].Type != events.ScreenOn || got[2].Type != events.SubjectActiveStop {
		t.Fatalf("unexpected tie order: %v, %v", got[1].Type, got[2].Type)
	}

	empty, err := evs.QueryEvents(ctx, 5000, 1000)
	if err != nil {
		t.Fatalf("query inverted range: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events for inverted range, got %d", len(empty))
	}
}

func TestEventStoreRejectsInvalidEvents(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	err := store.Events().Append(context.Background(), events.Event{Type: events.SubjectActiveStart, Timestamp: 10})
	if err == nil {
		t.Fatal("expected error for subject event without subject")
	}
}

func TestEventStoreCleanup(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Now()
	old := now.Add(-48 * time.Hour).UnixMilli()

	if err := store.Events().Append(ctx,
		events.Event{Type: events.ScreenOn, Timestamp: old},
		events.Event{Type: events.ScreenOff, Timestamp: old + 1000},
		events.Event{Type: events.ScreenOn, Timestamp: now.UnixMilli()},
	); err != nil {
		t.Fatalf("append events: %v", err)
	}

	deleted, err := store.Events().DeleteEventsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete events before: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted events, got %d", deleted)
	}

	remaining, err := store.Events().QueryEvents(ctx, 0, now.UnixMilli()+1)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining event, got %d", len(remaining))
	}
}

func TestAppStore(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	apps := store.Apps()

	for _, app := range []storage.App{
		{ID: "com.example.reader", Name: "Reader", Launchable: true},
		{ID: "com.android.systemui", Name: "System UI"},
	} {
		if err := apps.Upsert(ctx, app); err != nil {
			t.Fatalf("upsert app: %v", err)
		}
	}

	app, err := apps.Get(ctx, "com.example.reader")
	if err != nil {
		t.Fatalf("get app: %v", err)
	}
	if !app.Launchable || app.UpdatedAt.IsZero() {
		t.Fatalf("unexpected app: %+v", app)
	}

	list, err := apps.List(ctx)
	if err != nil {
		t.Fatalf("list apps: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 apps, got %d", len(list))
	}

	if err := apps.Delete(ctx, "com.android.systemui"); err != nil {
		t.Fatalf("delete app: %v", err)
	}
	if _, err := apps.Get(ctx, "com.android.systemui"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := apps.Delete(ctx, "com.android.systemui"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResultStoreImmutable(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	results := store.Results()

	first := storage.DailyResult{Date: "2024-01-02", UsageMillis: 90 * 60 * 1000, GoalType: "total_time"}
	if err := results.Create(ctx, first); err != nil {
		t.Fatalf("create result: %v", err)
	}
	if err := results.Create(ctx, storage.DailyResult{Date: "2024-01-02", UsageMillis: 1}); !errors.Is(err, storage.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, err := results.Get(ctx, "2024-01-02")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got.UsageMinutes() != 90 {
		t.Fatalf("expected 90 minutes, got %d", got.UsageMinutes())
	}

	if err := results.Create(ctx, storage.DailyResult{Date: "2024-01-05"}); err != nil {
		t.Fatalf("create result: %v", err)
	}
	if err := results.Create(ctx, storage.DailyResult{Date: "Jan 5"}); err == nil {
		t.Fatal("expected invalid date error")
	}

	deleted, err := results.DeleteBefore(ctx, "2024-01-03")
	if err != nil {
		t.Fatalf("delete results before: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted result, got %d", deleted)
	}

	list, err := results.List(ctx)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(list) != 1 || list[0].Date != "2024-01-05" {
		t.Fatalf("unexpected remaining results: %+v", list)
	}
}

func TestSettingsStore(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	settings := store.Settings()

	if _, err := settings.Get(ctx, storage.SettingUsageAccess); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := settings.Set(ctx, storage.SettingUsageAccess, "true"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	value, err := settings.Get(ctx, storage.SettingUsageAccess)
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if value != "true" {
		t.Fatalf("expected true, got %q", value)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "screenpledge.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Settings().Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if v, err := store.Settings().Get(context.Background(), "k"); err != nil || v != "v" {
		t.Fatalf("expected persisted setting, got %q, %v", v, err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "screenpledge.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
