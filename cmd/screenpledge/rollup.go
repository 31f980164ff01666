package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Record and inspect daily results",
}

var rollupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Record missing daily results and apply retention now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rollup, err := a.newRollup()
			if err != nil {
				return err
			}
			report, err := rollup.RunOnce(ctx)
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen)
			for _, date := range report.Created {
				green.Printf("recorded  %s\n", date)
			}
			for _, date := range report.Existing {
				fmt.Printf("existing  %s\n", date)
			}
			fmt.Printf("pruned %d events, %d results\n", report.EventsPruned, report.ResultsPruned)
			return nil
		})
	},
}

var rollupHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded daily results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			results, err := a.store.Results().List(ctx)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				color.New(color.FgYellow).Println("No daily results recorded")
				return nil
			}

			cyan := color.New(color.FgCyan, color.Bold)
			cyan.Printf("%-12s %10s  %-14s %s\n", "DATE", "USAGE", "GOAL", "TIMEZONE")
			cyan.Println(strings.Repeat("─", 56))
			for _, r := range results {
				goal := r.GoalType
				if goal == "" {
					goal = "-"
				}
				fmt.Printf("%-12s %10s  %-14s %s\n", r.Date, formatUsage(r.Usage()), goal, r.Timezone)
			}
			return nil
		})
	},
}

func init() {
	rollupCmd.AddCommand(rollupRunCmd)
	rollupCmd.AddCommand(rollupHistoryCmd)
	rootCmd.AddCommand(rollupCmd)
}
