package bolt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"go.etcd.io/bbolt"
)

type eventStore struct {
	db *bbolt.DB
}

// Append validates and stores events in a single transaction.
func (s *eventStore) Append(ctx context.Context, evs ...events.Event) error {
	for _, ev := range evs {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
	}
	if len(evs) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return fmt.Errorf("events bucket missing")
		}
		for _, ev := range evs {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("next event sequence: %w", err)
			}
			data, err := marshal(ev)
			if err != nil {
				return err
			}
			if err := bucket.Put(eventKey(ev.Timestamp, seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryEvents returns events with from <= timestamp < to in log order.
func (s *eventStore) QueryEvents(ctx context.Context, from, to int64) ([]events.Event, error) {
	out := []events.Event{}
	if from < 0 {
		from = 0
	}
	if to <= from {
		return out, nil
	}

	end := eventPrefix(to)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Seek(eventPrefix(from)); k != nil && bytes.Compare(k, end) < 0; k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ev events.Event
			if err := unmarshal(v, &ev); err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEventsBefore removes events with a timestamp before cutoff.
func (s *eventStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	end := eventPrefix(cutoff.UnixMilli())
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, end) < 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
