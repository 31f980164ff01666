package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Rollup  RollupConfig  `mapstructure:"rollup"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Path  string      `mapstructure:"path"` // bolt database file
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig defines how usage is computed
type EngineConfig struct {
	Lookback string `mapstructure:"lookback"` // how far before a window events are read
	Timezone string `mapstructure:"timezone"` // IANA name, "Local" for the host zone
}

// CatalogConfig defines app catalog settings
type CatalogConfig struct {
	MetadataCacheSize int `mapstructure:"metadata_cache_size"`
}

// RollupConfig defines the daily rollup job
type RollupConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	RunTime       string   `mapstructure:"run_time"` // HH:MM local time
	RetentionDays int      `mapstructure:"retention_days"`
	BackfillDays  int      `mapstructure:"backfill_days"`
	GoalType      string   `mapstructure:"goal_type"`
	Tracked       []string `mapstructure:"tracked"`
	Exempt        []string `mapstructure:"exempt"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LookbackDuration returns the parsed lookback.
func (c EngineConfig) LookbackDuration() time.Duration {
	d, err := time.ParseDuration(c.Lookback)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// Location resolves the configured timezone.
func (c EngineConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetEnvPrefix("SCREENPLEDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/screenpledge/screenpledge.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 5)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Engine defaults
	v.SetDefault("engine.lookback", "12h")
	v.SetDefault("engine.timezone", "Local")

	// Catalog defaults
	v.SetDefault("catalog.metadata_cache_size", 256)

	// Rollup defaults
	v.SetDefault("rollup.enabled", true)
	v.SetDefault("rollup.run_time", "00:05")
	v.SetDefault("rollup.retention_days", 30)
	v.SetDefault("rollup.backfill_days", 1)
	v.SetDefault("rollup.goal_type", "")
	v.SetDefault("rollup.tracked", []string{})
	v.SetDefault("rollup.exempt", []string{})

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", "127.0.0.1:9091")
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "", "bolt":
		cfg.Storage.Type = "bolt"
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	lookback, err := time.ParseDuration(cfg.Engine.Lookback)
	if err != nil {
		return fmt.Errorf("invalid engine.lookback: %w", err)
	}
	if lookback <= 0 {
		return fmt.Errorf("engine.lookback must be positive: %s", cfg.Engine.Lookback)
	}
	if _, err := cfg.Engine.Location(); err != nil {
		return fmt.Errorf("invalid engine.timezone: %w", err)
	}

	if cfg.Catalog.MetadataCacheSize <= 0 {
		return fmt.Errorf("catalog.metadata_cache_size must be positive: %d", cfg.Catalog.MetadataCacheSize)
	}

	if _, err := time.Parse("15:04", cfg.Rollup.RunTime); err != nil {
		return fmt.Errorf("invalid rollup.run_time %q (expected HH:MM): %w", cfg.Rollup.RunTime, err)
	}
	if cfg.Rollup.BackfillDays < 1 {
		return fmt.Errorf("rollup.backfill_days must be at least 1: %d", cfg.Rollup.BackfillDays)
	}
	if cfg.Rollup.RetentionDays > 0 && cfg.Rollup.RetentionDays <= cfg.Rollup.BackfillDays {
		return fmt.Errorf("rollup.retention_days (%d) must exceed rollup.backfill_days (%d)",
			cfg.Rollup.RetentionDays, cfg.Rollup.BackfillDays)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	return nil
}
