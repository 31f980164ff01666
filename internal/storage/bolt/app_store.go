package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screenpledge/internal/storage"
	"go.etcd.io/bbolt"
)

type appStore struct {
	db *bbolt.DB
}

func (s *appStore) Get(ctx context.Context, id string) (*storage.App, error) {
	return getBucketValue[storage.App](ctx, s.db, bucketApps, id)
}

func (s *appStore) List(ctx context.Context) ([]storage.App, error) {
	return listBucket[storage.App](ctx, s.db, bucketApps)
}

func (s *appStore) Upsert(ctx context.Context, app storage.App) error {
	if app.ID == "" {
		return fmt.Errorf("app id is required")
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}
	return putBucketValue(ctx, s.db, bucketApps, app.ID, app)
}

func (s *appStore) Delete(ctx context.Context, id string) error {
	return deleteBucketValue(ctx, s.db, bucketApps, id)
}
