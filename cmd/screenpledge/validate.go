package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goodtune/screenpledge/internal/config"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the ScreenPledge configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

// validKeys lists every configuration key the loader understands
var validKeys = []string{
	"storage.type",
	"storage.path",
	"storage.redis.host",
	"storage.redis.port",
	"storage.redis.password",
	"storage.redis.db",
	"storage.redis.pool_size",
	"storage.redis.min_idle_conns",
	"storage.redis.dial_timeout",
	"storage.redis.read_timeout",
	"storage.redis.write_timeout",

	"logging.level",
	"logging.format",

	"engine.lookback",
	"engine.timezone",

	"catalog.metadata_cache_size",

	"rollup.enabled",
	"rollup.run_time",
	"rollup.retention_days",
	"rollup.backfill_days",
	"rollup.goal_type",
	"rollup.tracked",
	"rollup.exempt",

	"metrics.enabled",
	"metrics.address",
}

func runValidate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Defaults())

		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	known := lo.SliceToMap(validKeys, func(key string) (string, bool) {
		return key, true
	})
	unknown := lo.Filter(v.AllKeys(), func(key string, _ int) bool {
		return !known[key]
	})
	sort.Strings(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	field := func(name string, value, defaultValue interface{}) {
		dumpField(name, value, defaultValue, yellow, green)
	}

	_, _ = cyan.Println("\n[storage]")
	field("  type", cfg.Storage.Type, defaultCfg.Storage.Type)
	field("  path", cfg.Storage.Path, defaultCfg.Storage.Path)
	_, _ = cyan.Println("  [storage.redis]")
	field("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host)
	field("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port)
	field("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password))
	field("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB)
	field("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize)
	field("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns)
	field("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout)
	field("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout)
	field("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout)

	_, _ = cyan.Println("\n[logging]")
	field("  level", cfg.Logging.Level, defaultCfg.Logging.Level)
	field("  format", cfg.Logging.Format, defaultCfg.Logging.Format)

	_, _ = cyan.Println("\n[engine]")
	field("  lookback", cfg.Engine.Lookback, defaultCfg.Engine.Lookback)
	field("  timezone", cfg.Engine.Timezone, defaultCfg.Engine.Timezone)

	_, _ = cyan.Println("\n[catalog]")
	field("  metadata_cache_size", cfg.Catalog.MetadataCacheSize, defaultCfg.Catalog.MetadataCacheSize)

	_, _ = cyan.Println("\n[rollup]")
	field("  enabled", cfg.Rollup.Enabled, defaultCfg.Rollup.Enabled)
	field("  run_time", cfg.Rollup.RunTime, defaultCfg.Rollup.RunTime)
	field("  retention_days", cfg.Rollup.RetentionDays, defaultCfg.Rollup.RetentionDays)
	field("  backfill_days", cfg.Rollup.BackfillDays, defaultCfg.Rollup.BackfillDays)
	field("  goal_type", cfg.Rollup.GoalType, defaultCfg.Rollup.GoalType)
	field("  tracked", cfg.Rollup.Tracked, defaultCfg.Rollup.Tracked)
	field("  exempt", cfg.Rollup.Exempt, defaultCfg.Rollup.Exempt)

	_, _ = cyan.Println("\n[metrics]")
	field("  enabled", cfg.Metrics.Enabled, defaultCfg.Metrics.Enabled)
	field("  address", cfg.Metrics.Address, defaultCfg.Metrics.Address)
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
