package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "storage:\n  path: "+filepath.Join(dir, "data", "screenpledge.bolt")+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Storage.Type != "bolt" {
		t.Fatalf("expected bolt storage, got %q", cfg.Storage.Type)
	}
	if cfg.Engine.LookbackDuration() != 12*time.Hour {
		t.Fatalf("expected 12h lookback, got %v", cfg.Engine.LookbackDuration())
	}
	if cfg.Rollup.RunTime != "00:05" || cfg.Rollup.BackfillDays != 1 || cfg.Rollup.RetentionDays != 30 {
		t.Fatalf("unexpected rollup defaults: %+v", cfg.Rollup)
	}
	if cfg.Catalog.MetadataCacheSize != 256 {
		t.Fatalf("expected cache size 256, got %d", cfg.Catalog.MetadataCacheSize)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("expected storage directory to be created: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCREENPLEDGE_STORAGE_PATH", filepath.Join(dir, "screenpledge.bolt"))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info level, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "storage:\n  path: "+filepath.Join(t.TempDir(), "s.bolt")+"\n")
	t.Setenv("SCREENPLEDGE_ENGINE_TIMEZONE", "Australia/Sydney")
	t.Setenv("SCREENPLEDGE_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loc, err := cfg.Engine.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "Australia/Sydney" {
		t.Fatalf("expected Australia/Sydney, got %s", loc)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRollupGoal(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"storage:",
		"  path: " + filepath.Join(t.TempDir(), "s.bolt"),
		"rollup:",
		"  goal_type: custom_group",
		"  tracked:",
		"    - com.example.game",
		"    - com.example.video",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rollup.GoalType != "custom_group" || len(cfg.Rollup.Tracked) != 2 {
		t.Fatalf("unexpected rollup goal: %+v", cfg.Rollup)
	}
}

func TestLoadInvalid(t *testing.T) {
	bolt := "storage:\n  path: " + filepath.Join(t.TempDir(), "s.bolt") + "\n"

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "storage type", body: "storage:\n  type: sqlite\n", want: "unsupported storage type"},
		{name: "log level", body: bolt + "logging:\n  level: loud\n", want: "invalid logging level"},
		{name: "lookback", body: bolt + "engine:\n  lookback: -1h\n", want: "engine.lookback"},
		{name: "timezone", body: bolt + "engine:\n  timezone: Mars/Olympus\n", want: "engine.timezone"},
		{name: "run time", body: bolt + "rollup:\n  run_time: noon\n", want: "rollup.run_time"},
		{name: "retention", body: bolt + "rollup:\n  retention_days: 3\n  backfill_days: 7\n", want: "retention_days"},
		{name: "cache size", body: bolt + "catalog:\n  metadata_cache_size: 0\n", want: "metadata_cache_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Storage.Redis.Port != 6379 || cfg.Metrics.Address == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
