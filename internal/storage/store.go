package storage

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// ErrExists is returned when creating a record that is already stored.
var ErrExists = errors.New("storage: record already exists")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Events() EventStore
	Apps() AppStore
	Results() ResultStore
	Settings() SettingsStore
}

// EventStore is the append-only usage event log. Events sharing a timestamp
// are returned in insertion order.
type EventStore interface {
	Append(ctx context.Context, evs ...events.Event) error
	QueryEvents(ctx context.Context, from, to int64) ([]events.Event, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// AppStore manages the installed application catalog.
type AppStore interface {
	Get(ctx context.Context, id string) (*App, error)
	List(ctx context.Context) ([]App, error)
	Upsert(ctx context.Context, app App) error
	Delete(ctx context.Context, id string) error
}

// ResultStore keeps one immutable result per local date.
type ResultStore interface {
	Create(ctx context.Context, result DailyResult) error
	Get(ctx context.Context, date string) (*DailyResult, error)
	List(ctx context.Context) ([]DailyResult, error)
	DeleteBefore(ctx context.Context, cutoffDate string) (int, error)
}

// SettingsStore holds small string settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
