package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/screenpledge/internal/screentime"
)

var (
	reportTop  int
	reportDate string
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's screen time",
	Long: `Show the gated screen time, the time counted against the configured goal, and the most used apps.

Defaults to today; use --date YYYY-MM-DD for an earlier local day.`,
	RunE:  runToday,
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show screen time for the last seven days",
	RunE:  runWeek,
}

func init() {
	todayCmd.Flags().IntVar(&reportTop, "top", 5, "Number of apps to list")
	todayCmd.Flags().StringVar(&reportDate, "date", "", "Local day to report (YYYY-MM-DD)")
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(weekCmd)
}

func runToday(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := requirePermission(ctx, a); err != nil {
		return err
	}

	w := a.resolver.Today()
	if reportDate != "" {
		if w, err = a.resolver.ForDateString(reportDate); err != nil {
			return err
		}
	}

	day, err := a.service.UsageForDay(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to compute device usage: %w", err)
	}
	counted, err := a.service.CountedUsageForDate(ctx, w.Start, a.rollupGoal())
	if err != nil {
		return fmt.Errorf("failed to compute counted usage: %w", err)
	}

	printToday(day, counted, a.cfg.Rollup.GoalType)
	return nil
}

func runWeek(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := requirePermission(ctx, a); err != nil {
		return err
	}

	days, err := a.service.WeeklyDeviceScreenTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute weekly usage: %w", err)
	}

	printWeek(days)
	return nil
}

func requirePermission(ctx context.Context, a *app) error {
	granted, err := a.service.IsPermissionGranted(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("usage access permission is not granted (run 'screenpledge permission grant')")
	}
	return nil
}

func printToday(day screentime.DayUsage, counted time.Duration, goalType string) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println(strings.Repeat("━", 50))
	cyan.Printf("SCREEN TIME %s\n", day.Date)
	cyan.Println(strings.Repeat("━", 50))
	fmt.Println()

	fmt.Print("Device:     ")
	green.Println(formatUsage(day.Device))
	if goalType == "" {
		goalType = "all apps"
	}
	fmt.Printf("Counted:    %s (%s)\n", formatUsage(counted), goalType)
	fmt.Println()

	if len(day.Apps) == 0 {
		yellow.Println("No app usage recorded")
	}
	for i, app := range day.Apps {
		if i == reportTop {
			break
		}
		fmt.Printf("  %-32s %s\n", app.Name, formatUsage(app.Usage))
	}

	fmt.Println()
	cyan.Println(strings.Repeat("━", 50))
	fmt.Println()
}

func printWeek(days []screentime.DailyTotal) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	var longest time.Duration
	for _, day := range days {
		if day.Usage > longest {
			longest = day.Usage
		}
	}

	fmt.Println()
	cyan.Println("SCREEN TIME, LAST 7 DAYS")
	fmt.Println()
	for _, day := range days {
		bar := 0
		if longest > 0 {
			bar = int(30 * day.Usage / longest)
		}
		fmt.Printf("%s  %8s  ", day.Date, formatUsage(day.Usage))
		green.Println(strings.Repeat("█", bar))
	}
	fmt.Println()
}

// formatUsage renders a duration as hours and minutes.
func formatUsage(d time.Duration) string {
	d = d.Truncate(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
