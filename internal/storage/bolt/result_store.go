package bolt

import (
	"context"
	"fmt"

	"github.com/goodtune/screenpledge/internal/storage"
	"go.etcd.io/bbolt"
)

type resultStore struct {
	db *bbolt.DB
}

// Create stores a result for a date that has no result yet.
func (s *resultStore) Create(ctx context.Context, result storage.DailyResult) error {
	if _, err := storage.ParseDate(result.Date); err != nil {
		return err
	}
	data, err := marshal(result)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketResults))
		if b == nil {
			return fmt.Errorf("results bucket missing")
		}
		if b.Get([]byte(result.Date)) != nil {
			return storage.ErrExists
		}
		return b.Put([]byte(result.Date), data)
	})
}

func (s *resultStore) Get(ctx context.Context, date string) (*storage.DailyResult, error) {
	return getBucketValue[storage.DailyResult](ctx, s.db, bucketResults, date)
}

// List returns every stored result in ascending date order.
func (s *resultStore) List(ctx context.Context) ([]storage.DailyResult, error) {
	return listBucket[storage.DailyResult](ctx, s.db, bucketResults)
}

// DeleteBefore removes results dated strictly before cutoffDate.
func (s *resultStore) DeleteBefore(ctx context.Context, cutoffDate string) (int, error) {
	if _, err := storage.ParseDate(cutoffDate); err != nil {
		return 0, err
	}
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketResults))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && string(k) < cutoffDate; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
