package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/screenpledge/internal/config"
	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestOpen_InvalidTimeout(t *testing.T) {
	_, err := Open(config.RedisConfig{Host: "localhost", DialTimeout: "soon", ReadTimeout: "3s", WriteTimeout: "3s"})
	if err == nil {
		t.Fatal("Expected error for invalid dial timeout")
	}
}

func TestEventStore_AppendAndQuery(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	evs := store.Events()

	err := evs.Append(ctx,
		events.Event{Type: events.ScreenOn, Timestamp: 1000},
		events.Event{Type: events.SubjectActiveStart, Timestamp: 1000, Subject: "com.example.a"},
		events.Event{Type: events.SubjectActiveStop, Timestamp: 4000, Subject: "com.example.a"},
		events.Event{Type: events.ScreenOff, Timestamp: 9000},
	)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := evs.QueryEvents(ctx, 1000, 9000)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	if got[0].Type != events.ScreenOn || got[1].Type != events.SubjectActiveStart {
		t.Errorf("Expected insertion order for equal timestamps, got %v, %v", got[0].Type, got[1].Type)
	}
	if got[1].Subject != "com.example.a" {
		t.Errorf("Expected subject com.example.a, got %q", got[1].Subject)
	}

	none, err := evs.QueryEvents(ctx, 9000, 9000)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected empty result for empty range, got %d", len(none))
	}
}

func TestEventStore_RejectsInvalidEvent(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	err := store.Events().Append(context.Background(),
		events.Event{Type: events.ScreenOn, Timestamp: 1},
		events.Event{Type: events.SubjectActiveStop, Timestamp: 2},
	)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if mr.Exists(keyEvents) {
		t.Error("Expected no events written when any event is invalid")
	}
}

func TestEventStore_DeleteEventsBefore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Now()
	old := now.Add(-72 * time.Hour).UnixMilli()

	if err := store.Events().Append(ctx,
		events.Event{Type: events.Unlock, Timestamp: old},
		events.Event{Type: events.Lock, Timestamp: old + 10},
		events.Event{Type: events.Unlock, Timestamp: now.UnixMilli()},
	); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	deleted, err := store.Events().DeleteEventsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteEventsBefore failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted events, got %d", deleted)
	}
}

func TestAppStore_UpsertGetList(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	apps := store.Apps()

	app := storage.App{ID: "com.example.reader", Name: "Reader", Launchable: true, Icon: []byte{0x89, 'P', 'N', 'G'}}
	if err := apps.Upsert(ctx, app); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := apps.Upsert(ctx, storage.App{ID: "com.android.phone", Name: "Phone"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := apps.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Reader" || !got.Launchable {
		t.Errorf("Unexpected app: %+v", got)
	}
	if string(got.Icon) != string(app.Icon) {
		t.Errorf("Expected icon bytes to round trip, got %v", got.Icon)
	}

	list, err := apps.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 apps, got %d", len(list))
	}

	if _, err := apps.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAppStore_Delete(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Apps().Upsert(ctx, storage.App{ID: "com.example.game", Name: "Game", Launchable: true}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Apps().Delete(ctx, "com.example.game"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists(keyAppPrefix + "com.example.game") {
		t.Error("Expected app hash to be removed")
	}
	if err := store.Apps().Delete(ctx, "com.example.game"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResultStore_CreateIsImmutable(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	results := store.Results()

	computed := time.Date(2024, 1, 3, 0, 5, 0, 0, time.UTC)
	first := storage.DailyResult{Date: "2024-01-02", UsageMillis: 3_600_000, GoalType: "custom_group", Timezone: "UTC", ComputedAt: computed}
	if err := results.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := results.Create(ctx, storage.DailyResult{Date: "2024-01-02", UsageMillis: 5, ComputedAt: computed})
	if !errors.Is(err, storage.ErrExists) {
		t.Fatalf("Expected ErrExists, got %v", err)
	}

	got, err := results.Get(ctx, "2024-01-02")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UsageMillis != first.UsageMillis || got.GoalType != "custom_group" {
		t.Errorf("Unexpected result: %+v", got)
	}
	if !got.ComputedAt.Equal(computed) {
		t.Errorf("Expected computed_at %v, got %v", computed, got.ComputedAt)
	}
}

func TestResultStore_ListAndDeleteBefore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	results := store.Results()

	for _, date := range []string{"2024-01-05", "2024-01-01", "2024-01-03"} {
		if err := results.Create(ctx, storage.DailyResult{Date: date, ComputedAt: time.Now()}); err != nil {
			t.Fatalf("Create %s failed: %v", date, err)
		}
	}

	list, err := results.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 || list[0].Date != "2024-01-01" || list[2].Date != "2024-01-05" {
		t.Fatalf("Expected ascending dates, got %+v", list)
	}

	deleted, err := results.DeleteBefore(ctx, "2024-01-04")
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted results, got %d", deleted)
	}

	if _, err := results.Get(ctx, "2024-01-03"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestSettingsStore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	settings := store.Settings()

	if _, err := settings.Get(ctx, storage.SettingUsageAccess); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := settings.Set(ctx, storage.SettingUsageAccess, "true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := settings.Get(ctx, storage.SettingUsageAccess)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "true" {
		t.Errorf("Expected true, got %q", value)
	}
}
