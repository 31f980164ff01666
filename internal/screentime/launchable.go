package screentime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/usage"
)

// LaunchableSource lists subjects that have a launcher entry.
type LaunchableSource interface {
	LaunchableSubjects(ctx context.Context) ([]string, error)
}

// LaunchableCache holds the launchable subject set. The set is loaded on the
// first Get and reused until Invalidate; readers never block once it is
// published.
type LaunchableCache struct {
	source LaunchableSource
	mu     sync.Mutex
	set    atomic.Pointer[usage.SubjectSet]
}

// NewLaunchableCache creates a cache that loads lazily from source.
func NewLaunchableCache(source LaunchableSource) *LaunchableCache {
	return &LaunchableCache{source: source}
}

// NewFixedLaunchableCache creates a cache that always returns ids.
func NewFixedLaunchableCache(ids ...string) *LaunchableCache {
	c := &LaunchableCache{}
	set := usage.NewSubjectSet(ids...)
	c.set.Store(&set)
	return c
}

// Get returns the launchable set, loading it if needed.
func (c *LaunchableCache) Get(ctx context.Context) (usage.SubjectSet, error) {
	if set := c.set.Load(); set != nil {
		return *set, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if set := c.set.Load(); set != nil {
		return *set, nil
	}
	if c.source == nil {
		return usage.SubjectSet{}, nil
	}

	ids, err := c.source.LaunchableSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load launchable subjects: %w", err)
	}
	set := usage.NewSubjectSet(ids...)
	c.set.Store(&set)
	metrics.LaunchableCacheLoads.Inc()

	return set, nil
}

// Invalidate drops the loaded set so the next Get reloads it. Fixed caches
// are unaffected.
func (c *LaunchableCache) Invalidate() {
	if c.source == nil {
		return
	}
	c.set.Store(nil)
}
