package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screenpledge",
	Short: "ScreenPledge - screen-time accounting from device usage events",
	Long: `ScreenPledge turns a device's usage-event log into screen-time figures.
Foreground time of launchable apps is only counted while the screen is on
and the device is unlocked, and each completed day is recorded once.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to daemon command when no subcommand is provided
		return runDaemon(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/screenpledge/config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
