package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/goodtune/screenpledge/internal/catalog"
	"github.com/goodtune/screenpledge/internal/config"
	"github.com/goodtune/screenpledge/internal/daywindow"
	"github.com/goodtune/screenpledge/internal/screentime"
	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/goodtune/screenpledge/internal/storage/bolt"
	"github.com/goodtune/screenpledge/internal/storage/redis"
	"github.com/goodtune/screenpledge/internal/usage"
)

// app holds the wired components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	store      storage.Store
	resolver   *daywindow.Resolver
	catalog    *catalog.Catalog
	permission *screentime.Permission
	service    *screentime.Service
	dispatcher *screentime.Dispatcher
}

// newApp loads configuration and wires storage, the usage engine and the
// query service. One-shot commands log errors only, to stderr.
func newApp(daemon bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var log zerolog.Logger
	if daemon {
		log = setupLogger(cfg.Logging)
	} else {
		log = zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
	}

	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve timezone: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cat, err := catalog.New(store.Apps(), cfg.Catalog.MetadataCacheSize, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize app catalog: %w", err)
	}

	clock := daywindow.RealClock{}
	resolver := daywindow.NewResolver(loc, clock)
	engine := usage.NewEngine(store.Events(), cfg.Engine.LookbackDuration(), log)
	permission := screentime.NewPermission(store.Settings(), store.Events(), clock, log)
	service := screentime.NewService(
		engine,
		resolver,
		screentime.NewLaunchableCache(cat),
		cat,
		permission,
		log,
	)

	return &app{
		cfg:        cfg,
		logger:     log,
		store:      store,
		resolver:   resolver,
		catalog:    cat,
		permission: permission,
		service:    service,
		dispatcher: screentime.NewDispatcher(service, log),
	}, nil
}

// Close releases storage.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// rollupGoal returns the goal recorded by the daily rollup.
func (a *app) rollupGoal() usage.Goal {
	return usage.Goal{
		Type:    a.cfg.Rollup.GoalType,
		Tracked: a.cfg.Rollup.Tracked,
		Exempt:  a.cfg.Rollup.Exempt,
	}
}

// newRollup creates the daily rollup over the app's service and storage.
func (a *app) newRollup() (*usage.Rollup, error) {
	return usage.NewRollup(
		a.service,
		a.store.Results(),
		a.store.Events(),
		a.resolver,
		usage.RollupConfig{
			RunTime:       a.cfg.Rollup.RunTime,
			RetentionDays: a.cfg.Rollup.RetentionDays,
			BackfillDays:  a.cfg.Rollup.BackfillDays,
			Goal:          a.rollupGoal(),
		},
		a.logger,
	)
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'bolt' or 'redis')", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
