package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/screenpledge/internal/metrics"
	"github.com/goodtune/screenpledge/internal/systemd"
	"github.com/goodtune/screenpledge/internal/usage"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the ScreenPledge daemon",
	Long:  `Run the daily rollup scheduler and the metrics endpoint until stopped.`,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("storage", a.cfg.Storage.Type).
		Str("timezone", a.resolver.Location().String()).
		Msg("Starting ScreenPledge")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize daily rollup
	var rollup *usage.Rollup
	if a.cfg.Rollup.Enabled {
		rollup, err = a.newRollup()
		if err != nil {
			return fmt.Errorf("failed to initialize daily rollup: %w", err)
		}

		// Catch up on days missed while stopped
		if report, err := rollup.RunOnce(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Startup rollup failed")
		} else {
			logger.Info().
				Strs("created", report.Created).
				Int("events_pruned", report.EventsPruned).
				Msg("Startup rollup complete")
		}

		rollup.Start()
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if a.cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(a.cfg.Metrics.Address, logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	// Keep the systemd watchdog fed if one is configured
	stopWatchdog := make(chan struct{})
	interval, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read systemd watchdog settings")
	}
	if interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := systemd.NotifyWatchdog(); err != nil {
						logger.Warn().Err(err).Msg("Failed to send systemd watchdog notification")
					}
				case <-stopWatchdog:
					return
				}
			}
		}()
	}

	logger.Info().Msg("ScreenPledge startup complete")

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals (shutdown or reload)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, reloading launchable apps")
			a.service.Launchable().Invalidate()
			continue
		}
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	close(stopWatchdog)

	if rollup != nil {
		rollup.Stop()
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("ScreenPledge stopped")

	return nil
}
