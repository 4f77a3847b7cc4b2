package config

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/gc"
	"github.com/marmos91/afsctl/pkg/journal/memory"
	"github.com/marmos91/afsctl/pkg/metrics"
)

// Default cell settings.
const (
	DefaultCellName   = "example.com"
	DefaultRealm      = "EXAMPLE.COM"
	DefaultKeytab     = "robot.keytab"
	DefaultKrb5CCache = "/tmp/afsrobot.krb5cc"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; see GetDefaultConfig and setupViper
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyToolsDefaults(&cfg.Tools)
	applyCellDefaults(&cfg.Cell)
	applyCommandDefaults(&cfg.Command)
	applyMetricsDefaults(&cfg.Metrics)
	applyJournalDefaults(&cfg.Journal)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command results.
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyToolsDefaults fills every executable with its canonical name.
func applyToolsDefaults(cfg *ToolsConfig) {
	def := command.DefaultExecutables()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&cfg.Vos, def.Vos)
	fill(&cfg.Fs, def.Fs)
	fill(&cfg.Bos, def.Bos)
	fill(&cfg.Rxdebug, def.Rxdebug)
	fill(&cfg.Aklog, def.Aklog)
	fill(&cfg.KlogKrb5, def.KlogKrb5)
	fill(&cfg.Kinit, def.Kinit)
	fill(&cfg.Kdestroy, def.Kdestroy)
	fill(&cfg.Unlog, def.Unlog)
	fill(&cfg.Pagsh, def.Pagsh)
}

// applyCellDefaults sets cell and realm defaults.
func applyCellDefaults(cfg *CellConfig) {
	if cfg.Name == "" {
		cfg.Name = DefaultCellName
	}
	if cfg.Realm == "" {
		cfg.Realm = DefaultRealm
	}
	if cfg.Keytab == "" {
		cfg.Keytab = DefaultKeytab
	}
	if cfg.Krb5CCache == "" {
		cfg.Krb5CCache = DefaultKrb5CCache
	}
}

// applyCommandDefaults sizes the rate limit bucket when only a rate is set.
func applyCommandDefaults(cfg *CommandConfig) {
	rl := &cfg.RateLimit
	if rl.RequestsPerSecond > 0 && rl.Burst == 0 {
		rl.Burst = max(1, int(math.Ceil(rl.RequestsPerSecond)))
	}
}

// applyMetricsDefaults sets the metrics port.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// applyJournalDefaults sets journal store defaults.
func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.Type == "" {
		cfg.Type = "none"
	}
	if cfg.Retention.Interval == 0 {
		cfg.Retention.Interval = gc.DefaultInterval
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Memory["capacity"]; !ok {
		cfg.Memory["capacity"] = memory.DefaultCapacity
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = defaultJournalPath()
	}
}

func defaultJournalPath() string {
	return filepath.Join(getConfigDir(), "journal")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cell: CellConfig{
			PagOneGroup: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
