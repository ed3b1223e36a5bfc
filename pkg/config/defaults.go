package config

import (
	"strings"
	"time"

	proto "github.com/marmos91/filepool/internal/protocol/fileserve"
	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/marmos91/filepool/pkg/store/content/cache"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are only filled in for sample generation;
//     constructors enforce their own requirements
//
// With no configuration at all the server listens on 127.0.0.1:54000 with
// 5 workers and serves files relative to the working directory.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyContentDefaults(&cfg.Content)
	applyAdaptersDefaults(&cfg.Adapters)
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
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.BindAddress == "" {
		cfg.Metrics.BindAddress = "127.0.0.1"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "."
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = cache.DefaultMaxEntries
	}
	if cfg.Cache.MaxEntrySize == 0 {
		cfg.Cache.MaxEntrySize = cache.DefaultMaxEntrySize
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Enable the file adapter when it looks unconfigured (no port given), so a
	// freshly loaded config with no file passes validation. Users can still
	// set enabled: false alongside an explicit port to disable it.
	if !cfg.File.Enabled && cfg.File.Port == 0 {
		cfg.File.Enabled = true
	}

	applyFileDefaults(&cfg.File)
}

// applyFileDefaults sets file adapter defaults.
func applyFileDefaults(cfg *fileserve.FileConfig) {
	if cfg.BindAddress == "" {
		cfg.BindAddress = fileserve.DefaultBindAddress
	}
	if cfg.Port == 0 {
		cfg.Port = fileserve.DefaultPort
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = fileserve.DefaultPoolSize
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = proto.DefaultBufferSize
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = proto.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = proto.DefaultWriteTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}

	// AcceptRate defaults to 0 (unlimited)
	// TrimLineEnding defaults to false (names are raw bytes)
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			File: fileserve.FileConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
