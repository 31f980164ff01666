package screentime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type countingSource struct {
	ids   []string
	err   error
	calls atomic.Int32
}

func (s *countingSource) LaunchableSubjects(ctx context.Context) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func TestLaunchableCacheLoadsOnce(t *testing.T) {
	source := &countingSource{ids: []string{"a", "b"}}
	cache := NewLaunchableCache(source)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := cache.Get(ctx)
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			if !set.Has("a") || !set.Has("b") || set.Has("c") {
				t.Errorf("unexpected set %v", set)
			}
		}()
	}
	wg.Wait()

	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected 1 load, got %d", got)
	}
}

func TestLaunchableCacheInvalidate(t *testing.T) {
	source := &countingSource{ids: []string{"a"}}
	cache := NewLaunchableCache(source)
	ctx := context.Background()

	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	source.ids = []string{"a", "b"}
	cache.Invalidate()

	set, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if !set.Has("b") {
		t.Fatalf("expected reloaded set to contain b, got %v", set)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected 2 loads, got %d", got)
	}
}

func TestLaunchableCacheLoadError(t *testing.T) {
	boom := errors.New("catalog unavailable")
	source := &countingSource{err: boom}
	cache := NewLaunchableCache(source)

	if _, err := cache.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}

	source.err = nil
	source.ids = []string{"a"}
	set, err := cache.Get(context.Background())
	if err != nil || !set.Has("a") {
		t.Fatalf("expected retry to succeed, got %v, %v", set, err)
	}
}

func TestFixedLaunchableCache(t *testing.T) {
	cache := NewFixedLaunchableCache("a", "", "b")
	cache.Invalidate()

	set, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set) != 2 || !set.Has("a") || !set.Has("b") {
		t.Fatalf("unexpected set %v", set)
	}
}
