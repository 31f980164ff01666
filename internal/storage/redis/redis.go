package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/config"
	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/redis/go-redis/v9"
)

const (
	keyEvents       = "screenpledge:events"
	keyEventSeq     = "screenpledge:events:seq"
	keyApps         = "screenpledge:apps"
	keyAppPrefix    = "screenpledge:app:"
	keyResults      = "screenpledge:results"
	keyResultPrefix = "screenpledge:result:"
	keySettings     = "screenpledge:settings"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client        *redis.Client
	eventStore    *eventStore
	appStore      *appStore
	resultStore   *resultStore
	settingsStore *settingsStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &Store{
		client:        client,
		eventStore:    &eventStore{client: client, appendScript: redis.NewScript(appendEventsScript)},
		appStore:      &appStore{client: client},
		resultStore:   &resultStore{client: client, createScript: redis.NewScript(createResultScript)},
		settingsStore: &settingsStore{client: client},
	}

	return store, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Events returns the EventStore implementation
func (s *Store) Events() storage.EventStore {
	return s.eventStore
}

// Apps returns the AppStore implementation
func (s *Store) Apps() storage.AppStore {
	return s.appStore
}

// Results returns the ResultStore implementation
func (s *Store) Results() storage.ResultStore {
	return s.resultStore
}

// Settings returns the SettingsStore implementation
func (s *Store) Settings() storage.SettingsStore {
	return s.settingsStore
}
