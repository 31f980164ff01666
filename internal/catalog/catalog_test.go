package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/goodtune/screenpledge/internal/storage/bolt"
)

func newTestCatalog(t *testing.T, apps ...storage.App) (*Catalog, storage.AppStore) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "catalog.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, app := range apps {
		if err := store.Apps().Upsert(context.Background(), app); err != nil {
			t.Fatalf("upsert app: %v", err)
		}
	}

	c, err := New(store.Apps(), 8, zerolog.Nop())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c, store.Apps()
}

func TestLaunchableSubjects(t *testing.T) {
	c, _ := newTestCatalog(t,
		storage.App{ID: "com.example.reader", Name: "Reader", Launchable: true},
		storage.App{ID: "com.example.game", Name: "Game", Launchable: true},
		storage.App{ID: "com.android.systemui", Name: "System UI"},
	)

	ids, err := c.LaunchableSubjects(context.Background())
	if err != nil {
		t.Fatalf("launchable subjects: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "com.example.game" || ids[1] != "com.example.reader" {
		t.Fatalf("unexpected launchable subjects: %v", ids)
	}
}

func TestInstalledAppsSortedByName(t *testing.T) {
	c, _ := newTestCatalog(t,
		storage.App{ID: "b", Name: "zebra", Launchable: true},
		storage.App{ID: "a", Name: "Alpha", Launchable: true},
		storage.App{ID: "c", Launchable: true},
		storage.App{ID: "d", Name: "hidden"},
	)

	apps, err := c.InstalledApps(context.Background())
	if err != nil {
		t.Fatalf("installed apps: %v", err)
	}
	got := make([]string, 0, len(apps))
	for _, app := range apps {
		got = append(got, app.ID)
	}
	want := []string{"a", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDisplayMetadataCaching(t *testing.T) {
	c, apps := newTestCatalog(t,
		storage.App{ID: "com.example.reader", Name: "Reader", Launchable: true, Icon: []byte("png")},
	)
	ctx := context.Background()

	md, err := c.DisplayMetadata(ctx, "com.example.reader")
	if err != nil {
		t.Fatalf("display metadata: %v", err)
	}
	if md.Name != "Reader" || string(md.Icon) != "png" {
		t.Fatalf("unexpected metadata: %+v", md)
	}

	// A direct store write is not visible until the entry is evicted.
	if err := apps.Upsert(ctx, storage.App{ID: "com.example.reader", Name: "Reader 2", Launchable: true}); err != nil {
		t.Fatalf("upsert app: %v", err)
	}
	md, _ = c.DisplayMetadata(ctx, "com.example.reader")
	if md.Name != "Reader" {
		t.Fatalf("expected cached name, got %q", md.Name)
	}

	if err := c.Upsert(ctx, storage.App{ID: "com.example.reader", Name: "Reader 3", Launchable: true}); err != nil {
		t.Fatalf("catalog upsert: %v", err)
	}
	md, _ = c.DisplayMetadata(ctx, "com.example.reader")
	if md.Name != "Reader 3" {
		t.Fatalf("expected refreshed name, got %q", md.Name)
	}

	if _, err := c.DisplayMetadata(ctx, "com.unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	c, _ := newTestCatalog(t, storage.App{ID: "x", Name: "X", Launchable: true})
	ctx := context.Background()

	if _, err := c.DisplayMetadata(ctx, "x"); err != nil {
		t.Fatalf("display metadata: %v", err)
	}
	if err := c.Remove(ctx, "x"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := c.DisplayMetadata(ctx, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}
