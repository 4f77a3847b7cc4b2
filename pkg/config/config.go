package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/afsctl/pkg/command"
	"github.com/spf13/viper"
)

// Config represents the complete afsctl configuration.
//
// This structure captures all configurable aspects of afsctl including:
//   - Logging configuration
//   - Executable names or paths for the OpenAFS and Kerberos tools
//   - Cell and Kerberos realm settings
//   - Command execution limits
//   - Metrics exposition
//   - The optional command journal
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (AFSCTL_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Tools holds the executable used for each external tool
	Tools ToolsConfig `mapstructure:"tools" yaml:"tools"`

	// Cell describes the AFS cell and Kerberos realm to operate on
	Cell CellConfig `mapstructure:"cell" yaml:"cell"`

	// Command contains execution settings applied by the CLI
	Command CommandConfig `mapstructure:"command" yaml:"command"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Journal selects where invocation records are kept
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr (default), or a file path (rotated)
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ToolsConfig maps every tool category to an executable name or path.
// Empty values fall back to the canonical tool name.
type ToolsConfig struct {
	Vos      string `mapstructure:"vos" yaml:"vos"`
	Fs       string `mapstructure:"fs" yaml:"fs"`
	Bos      string `mapstructure:"bos" yaml:"bos"`
	Rxdebug  string `mapstructure:"rxdebug" yaml:"rxdebug"`
	Aklog    string `mapstructure:"aklog" yaml:"aklog"`
	KlogKrb5 string `mapstructure:"klog_krb5" yaml:"klog_krb5"`
	Kinit    string `mapstructure:"kinit" yaml:"kinit"`
	Kdestroy string `mapstructure:"kdestroy" yaml:"kdestroy"`
	Unlog    string `mapstructure:"unlog" yaml:"unlog"`
	Pagsh    string `mapstructure:"pagsh" yaml:"pagsh"`
}

// Executables converts the section into the command package form.
func (t ToolsConfig) Executables() command.Executables {
	return command.Executables{
		Vos:      t.Vos,
		Fs:       t.Fs,
		Bos:      t.Bos,
		Rxdebug:  t.Rxdebug,
		Aklog:    t.Aklog,
		KlogKrb5: t.KlogKrb5,
		Kinit:    t.Kinit,
		Kdestroy: t.Kdestroy,
		Unlog:    t.Unlog,
		Pagsh:    t.Pagsh,
	}
}

// CellConfig describes the cell and the credentials used to reach it.
type CellConfig struct {
	// Name is the AFS cell name
	Name string `mapstructure:"name" yaml:"name" validate:"required,hostname_rfc1123"`

	// Realm is the Kerberos realm
	Realm string `mapstructure:"realm" yaml:"realm" validate:"required"`

	// Keytab is the keytab used by akimpersonate
	Keytab string `mapstructure:"keytab" yaml:"keytab"`

	// Akimpersonate forges tokens from the keytab instead of logging in
	Akimpersonate bool `mapstructure:"akimpersonate" yaml:"akimpersonate"`

	// Krb5CCache is the private ticket cache used by keytab logins
	Krb5CCache string `mapstructure:"krb5_ccache" yaml:"krb5_ccache" validate:"required"`

	// PagOneGroup selects the single group PAG encoding
	PagOneGroup bool `mapstructure:"pag_onegroup" yaml:"pag_onegroup"`
}

// CommandConfig contains execution settings.
type CommandConfig struct {
	// Timeout bounds a single CLI operation; 0 disables it
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`

	// RateLimit paces tool invocations
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the invocation token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; 0 disables limiting
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the bucket size
	// Default: the rate rounded up, at least 1
	Burst int `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// JournalConfig specifies the journal store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type JournalConfig struct {
	// Type specifies which journal implementation to use
	// Valid values: none, memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=none memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Retention controls pruning of old records
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
}

// RetentionConfig controls journal pruning.
type RetentionConfig struct {
	// MaxAge is how long records are kept; 0 keeps them forever
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`

	// Interval is how often long-running commands prune
	// Default: 1h
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AFSCTL_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use AFSCTL_ prefix and underscores
	// Example: AFSCTL_CELL_NAME=example.org
	v.SetEnvPrefix("AFSCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these booleans, so ApplyDefaults
	// cannot fill them in.
	v.SetDefault("cell.pag_onegroup", true)
	v.SetDefault("cell.akimpersonate", false)
	v.SetDefault("metrics.enabled", false)

	// AutomaticEnv only sees keys viper already knows about.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/afsctl/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys lists the scalar settings that may come from the environment alone.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"tools.vos", "tools.fs", "tools.bos", "tools.rxdebug", "tools.aklog",
	"tools.klog_krb5", "tools.kinit", "tools.kdestroy", "tools.unlog", "tools.pagsh",
	"cell.name", "cell.realm", "cell.keytab", "cell.krb5_ccache",
	"command.timeout", "command.rate_limit.requests_per_second", "command.rate_limit.burst",
	"metrics.port",
	"journal.type", "journal.retention.max_age", "journal.retention.interval",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "afsctl")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "afsctl")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
