package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "FILEPOOL"

// Config represents the complete filepool configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FILEPOOL_*), including those from a .env file
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each content store implementation defines its own options. The Content
// section carries one map per store type and only the map matching the
// selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Content specifies where served files come from
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Adapters contains listener configurations
	Adapters AdaptersConfig `mapstructure:"adapters" yaml:"adapters"`
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
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds how long each adapter gets to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the IP the metrics endpoint listens on (default 127.0.0.1)
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"omitempty,ip"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// ContentConfig specifies the content store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3 badger"`

	// Filesystem options: path
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Memory options: files (list of {name, contents} seeded at startup)
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// S3 options: region, bucket, key_prefix, endpoint, access_key_id,
	// secret_access_key, force_path_style, max_retries
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Badger options: db_path, in_memory
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// Cache configures the in-memory LRU in front of the store
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// CacheConfig configures the content cache.
type CacheConfig struct {
	// Enabled wraps the content store with an LRU of small file bodies
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxEntries bounds the number of cached files
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries" validate:"min=0"`

	// MaxEntrySize is the largest file (in bytes) kept in the cache
	MaxEntrySize int64 `mapstructure:"max_entry_size" yaml:"max_entry_size" validate:"min=0"`
}

// AdaptersConfig contains all listener configurations.
type AdaptersConfig struct {
	// File contains the file request protocol configuration.
	// Uses the fileserve.FileConfig type directly to avoid duplication.
	File fileserve.FileConfig `mapstructure:"file" yaml:"file"`
}

// envKeys lists the keys that can be overridden from the environment.
// viper only consults the environment for keys it already knows about, so
// every scalar setting is bound explicitly.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.bind_address",
	"server.metrics.port",
	"content.type",
	"content.filesystem.path",
	"content.s3.region",
	"content.s3.bucket",
	"content.s3.key_prefix",
	"content.s3.endpoint",
	"content.s3.access_key_id",
	"content.s3.secret_access_key",
	"content.s3.force_path_style",
	"content.badger.db_path",
	"content.cache.enabled",
	"content.cache.max_entries",
	"content.cache.max_entry_size",
	"adapters.file.enabled",
	"adapters.file.bind_address",
	"adapters.file.port",
	"adapters.file.pool_size",
	"adapters.file.buffer_size",
	"adapters.file.read_timeout",
	"adapters.file.write_timeout",
	"adapters.file.shutdown_timeout",
	"adapters.file.metrics_log_interval",
	"adapters.file.accept_rate",
	"adapters.file.accept_burst",
	"adapters.file.trim_line_ending",
}

// Load loads configuration from file, environment, and defaults.
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win over it.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

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

// LoadDotEnv loads environment variables from path without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: FILEPOOL_ADAPTERS_FILE_POOL_SIZE=10
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/filepool/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filepool")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filepool")
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

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
