package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/redis/go-redis/v9"
)

type resultStore struct {
	client       *redis.Client
	createScript *redis.Script
}

// Create stores a result for a date that has no result yet
func (s *resultStore) Create(ctx context.Context, result storage.DailyResult) error {
	if _, err := storage.ParseDate(result.Date); err != nil {
		return err
	}

	keys := []string{keyResultPrefix + result.Date, keyResults}
	args := []interface{}{
		result.Date,
		strconv.FormatInt(result.UsageMillis, 10),
		result.GoalType,
		result.Timezone,
		result.ComputedAt.Format(time.RFC3339Nano),
	}

	created, err := s.createScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return storage.ErrExists
	}
	return nil
}

// Get retrieves the result for a date
func (s *resultStore) Get(ctx context.Context, date string) (*storage.DailyResult, error) {
	data, err := s.client.HGetAll(ctx, keyResultPrefix+date).Result()
	if err != nil {
		return nil, err
	}
	return parseDailyResult(data)
}

// List returns every stored result in ascending date order
func (s *resultStore) List(ctx context.Context) ([]storage.DailyResult, error) {
	dates, err := s.client.ZRange(ctx, keyResults, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, dates)
}

// DeleteBefore removes results dated strictly before cutoffDate
func (s *resultStore) DeleteBefore(ctx context.Context, cutoffDate string) (int, error) {
	if _, err := storage.ParseDate(cutoffDate); err != nil {
		return 0, err
	}

	dates, err := s.client.ZRangeByLex(ctx, keyResults, &redis.ZRangeBy{
		Min: "-",
		Max: "(" + cutoffDate,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, date := range dates {
		pipe.Del(ctx, keyResultPrefix+date)
		pipe.ZRem(ctx, keyResults, date)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(dates), nil
}

func (s *resultStore) fetch(ctx context.Context, dates []string) ([]storage.DailyResult, error) {
	if len(dates) == 0 {
		return []storage.DailyResult{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(dates))
	for i, date := range dates {
		cmds[i] = pipe.HGetAll(ctx, keyResultPrefix+date)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	results := make([]storage.DailyResult, 0, len(dates))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		result, err := parseDailyResult(data)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}
