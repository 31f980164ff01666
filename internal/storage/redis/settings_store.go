package redis

import (
	"context"
	"errors"

	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/redis/go-redis/v9"
)

type settingsStore struct {
	client *redis.Client
}

// Get returns a setting value
func (s *settingsStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.HGet(ctx, keySettings, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a setting value
func (s *settingsStore) Set(ctx context.Context, key, value string) error {
	return s.client.HSet(ctx, keySettings, key, value).Err()
}
