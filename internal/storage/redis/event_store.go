package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/redis/go-redis/v9"
)

type eventStore struct {
	client       *redis.Client
	appendScript *redis.Script
}

// Append validates events and adds them to the log in one script call
func (s *eventStore) Append(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(evs)*2)
	for _, ev := range evs {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		args = append(args, ev.Timestamp, string(payload))
	}

	keys := []string{keyEvents, keyEventSeq}
	return s.appendScript.Run(ctx, s.client, keys, args...).Err()
}

// QueryEvents returns events with from <= timestamp < to in log order
func (s *eventStore) QueryEvents(ctx context.Context, from, to int64) ([]events.Event, error) {
	out := []events.Event{}
	if to <= from {
		return out, nil
	}

	members, err := s.client.ZRangeByScore(ctx, keyEvents, &redis.ZRangeBy{
		Min: strconv.FormatInt(from, 10),
		Max: "(" + strconv.FormatInt(to, 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, member := range members {
		ev, err := parseEventMember(member)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// DeleteEventsBefore removes events with a timestamp before cutoff
func (s *eventStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := s.client.ZRemRangeByScore(ctx, keyEvents, "-inf", "("+strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}
