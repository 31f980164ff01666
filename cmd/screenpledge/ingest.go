package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/storage"
)

const ingestBatchSize = 500

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load usage events or the app catalog",
}

var ingestEventsCmd = &cobra.Command{
	Use:   "events [FILE]",
	Short: "Append usage events from a JSON-lines file",
	Long: `Append usage events to the event log. Each line is a JSON object with a
"timestamp" in epoch milliseconds and either a "type" name or a raw platform
"code" (with optional "api_level"). Subject events carry a "subject".
Reads stdin when FILE is omitted or "-".`,
	Example: `  screenpledge ingest events usage.jsonl
  echo '{"type":"screen_on","timestamp":1717574400000}' | screenpledge ingest events`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngestEvents,
}

var ingestAppsCmd = &cobra.Command{
	Use:   "apps FILE",
	Short: "Upsert installed apps from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestApps,
}

func init() {
	ingestCmd.AddCommand(ingestEventsCmd)
	ingestCmd.AddCommand(ingestAppsCmd)
	rootCmd.AddCommand(ingestCmd)
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

func runIngestEvents(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	appended, skipped, err := ingestEvents(ctx, a.store.Events(), in)
	if err != nil {
		return err
	}

	fmt.Printf("Appended %d events (%d skipped)\n", appended, skipped)
	return nil
}

// ingestEvents decodes JSON-lines records and appends them in batches.
func ingestEvents(ctx context.Context, store storage.EventStore, r io.Reader) (appended, skipped int, err error) {
	batch := make([]events.Event, 0, ingestBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.Append(ctx, batch...); err != nil {
			return fmt.Errorf("failed to append events: %w", err)
		}
		for _, ev := range batch {
			metrics.EventsIngested.WithLabelValues(ev.Type.String()).Inc()
		}
		appended += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec events.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return appended, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		ev, ok, err := rec.Event()
		if err != nil {
			return appended, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			skipped++
			continue
		}

		batch = append(batch, ev)
		if len(batch) == ingestBatchSize {
			if err := flush(); err != nil {
				return appended, skipped, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return appended, skipped, fmt.Errorf("failed to read events: %w", err)
	}

	return appended, skipped, flush()
}

func runIngestApps(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var apps []storage.App
	if err := json.Unmarshal(data, &apps); err != nil {
		return fmt.Errorf("invalid app list: %w", err)
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	for _, app := range apps {
		if err := a.catalog.Upsert(ctx, app); err != nil {
			return fmt.Errorf("failed to store app %q: %w", app.ID, err)
		}
	}

	fmt.Printf("Stored %d apps\n", len(apps))
	return nil
}
