// Package catalog exposes the installed application catalog: which subjects
// are launchable and how to display them.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/storage"
)

// DefaultMetadataCacheSize bounds the display metadata cache.
const DefaultMetadataCacheSize = 256

// Metadata is the display information for a subject.
type Metadata struct {
	Name string `json:"name"`
	Icon []byte `json:"icon,omitempty"`
}

// Catalog reads apps from an AppStore.
type Catalog struct {
	apps   storage.AppStore
	cache  *lru.Cache[string, Metadata]
	logger zerolog.Logger
}

// New creates a catalog backed by apps.
func New(apps storage.AppStore, cacheSize int, logger zerolog.Logger) (*Catalog, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultMetadataCacheSize
	}
	cache, err := lru.New[string, Metadata](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	return &Catalog{
		apps:   apps,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}, nil
}

// LaunchableSubjects returns the IDs of every app with a launcher entry.
func (c *Catalog) LaunchableSubjects(ctx context.Context) ([]string, error) {
	apps, err := c.apps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	ids := lo.FilterMap(apps, func(app storage.App, _ int) (string, bool) {
		return app.ID, app.Launchable
	})
	c.logger.Debug().Int("apps", len(apps)).Int("launchable", len(ids)).Msg("Loaded launchable subjects")
	return ids, nil
}

// InstalledApps returns launchable apps ordered by display name.
func (c *Catalog) InstalledApps(ctx context.Context) ([]storage.App, error) {
	apps, err := c.apps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	launchable := lo.Filter(apps, func(app storage.App, _ int) bool {
		return app.Launchable
	})
	sort.Slice(launchable, func(i, j int) bool {
		a, b := strings.ToLower(displayName(launchable[i])), strings.ToLower(displayName(launchable[j]))
		if a != b {
			return a < b
		}
		return launchable[i].ID < launchable[j].ID
	})
	return launchable, nil
}

// DisplayMetadata resolves the name and icon for id. Unknown subjects return
// storage.ErrNotFound.
func (c *Catalog) DisplayMetadata(ctx context.Context, id string) (Metadata, error) {
	if md, ok := c.cache.Get(id); ok {
		metrics.MetadataCacheHits.Inc()
		return md, nil
	}
	metrics.MetadataCacheMisses.Inc()

	app, err := c.apps.Get(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	md := Metadata{Name: displayName(*app), Icon: app.Icon}
	c.cache.Add(id, md)
	return md, nil
}

// Upsert stores app and drops any cached metadata for it.
func (c *Catalog) Upsert(ctx context.Context, app storage.App) error {
	if err := c.apps.Upsert(ctx, app); err != nil {
		return err
	}
	c.cache.Remove(app.ID)
	return nil
}

// Remove deletes an app and drops any cached metadata for it.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	c.cache.Remove(id)
	return c.apps.Delete(ctx, id)
}

func displayName(app storage.App) string {
	if app.Name != "" {
		return app.Name
	}
	return app.ID
}
