package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/redis/go-redis/v9"
)

type appStore struct {
	client *redis.Client
}

// Get retrieves an app by ID
func (s *appStore) Get(ctx context.Context, id string) (*storage.App, error) {
	data, err := s.client.HGetAll(ctx, keyAppPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	return parseApp(data)
}

// List returns every known app
func (s *appStore) List(ctx context.Context) ([]storage.App, error) {
	ids, err := s.client.SMembers(ctx, keyApps).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.App{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyAppPrefix+id)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	apps := make([]storage.App, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		app, err := parseApp(data)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}

	return apps, nil
}

// Upsert creates or replaces an app
func (s *appStore) Upsert(ctx context.Context, app storage.App) error {
	if app.ID == "" {
		return fmt.Errorf("app id is required")
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}

	key := keyAppPrefix + app.ID
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"id", app.ID,
		"name", app.Name,
		"launchable", app.Launchable,
		"icon", app.Icon,
		"updated_at", app.UpdatedAt.Format(time.RFC3339Nano),
	)
	pipe.SAdd(ctx, keyApps, app.ID)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes an app
func (s *appStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.SRem(ctx, keyApps, id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return s.client.Del(ctx, keyAppPrefix+id).Err()
}
