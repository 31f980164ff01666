package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/storage/bolt"
)

func TestIngestEvents(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "ingest.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	input := strings.Join([]string{
		`{"type":"screen_on","timestamp":1000}`,
		``,
		`{"code":1,"api_level":30,"timestamp":2000,"subject":"com.example.game"}`,
		`{"code":15,"api_level":26,"timestamp":2500}`,
		`{"code":23,"timestamp":2600}`,
		`{"type":"ACTIVITY_PAUSED","timestamp":3000,"subject":"com.example.game"}`,
	}, "\n")

	ctx := context.Background()
	appended, skipped, err := ingestEvents(ctx, store.Events(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if appended != 3 || skipped != 2 {
		t.Fatalf("expected 3 appended and 2 skipped, got %d and %d", appended, skipped)
	}

	evs, err := store.Events().QueryEvents(ctx, 0, 10000)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []events.Type{events.ScreenOn, events.SubjectActiveStart, events.SubjectActiveStop}
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evs))
	}
	for i, typ := range want {
		if evs[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, evs[i].Type)
		}
	}
}

func TestIngestEventsRejectsBadLine(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "ingest.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	input := "{\"type\":\"screen_on\",\"timestamp\":1000}\n{\"type\":\"subject_active_start\",\"timestamp\":2000}\n"
	_, _, err = ingestEvents(context.Background(), store.Events(), strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}

func TestFormatUsage(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{45 * time.Minute, "45m"},
		{2*time.Hour + 5*time.Minute + 30*time.Second, "2h 05m"},
		{24 * time.Hour, "24h 00m"},
	}
	for _, tt := range tests {
		if got := formatUsage(tt.in); got != tt.want {
			t.Fatalf("formatUsage(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFindUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "engine:\n  timezone: UTC\n  lookbak: 6h\nmetrics:\n  enabled: false\nproxy:\n  port: 80\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	unknown, err := findUnknownKeys(path)
	if err != nil {
		t.Fatalf("find unknown keys: %v", err)
	}
	if strings.Join(unknown, ",") != "engine.lookbak,proxy.port" {
		t.Fatalf("unexpected unknown keys %v", unknown)
	}
}
