package config

import (
	"testing"
	"time"

	"github.com/marmos91/filepool/pkg/store/content/cache"
	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_Empty(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1", cfg.Server.Metrics.BindAddress)
	assert.Equal(t, 9090, cfg.Server.Metrics.Port)

	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.Equal(t, ".", cfg.Content.Filesystem["path"])
	assert.Equal(t, cache.DefaultMaxEntries, cfg.Content.Cache.MaxEntries)
	assert.Equal(t, int64(cache.DefaultMaxEntrySize), cfg.Content.Cache.MaxEntrySize)
	assert.False(t, cfg.Content.Cache.Enabled)

	file := cfg.Adapters.File
	assert.True(t, file.Enabled)
	assert.Equal(t, "127.0.0.1", file.BindAddress)
	assert.Equal(t, 54000, file.Port)
	assert.Equal(t, 5, file.PoolSize)
	assert.Equal(t, 4096, file.BufferSize)
	assert.Equal(t, 30*time.Second, file.ReadTimeout)
	assert.Equal(t, 30*time.Second, file.WriteTimeout)
	assert.Equal(t, 30*time.Second, file.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, file.MetricsLogInterval)
	assert.Zero(t, file.AcceptRate)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Logging: LoggingConfig{Level: "debug", Format: "json", Output: "stderr"},
		Content: ContentConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": "/srv"},
		},
	}
	cfg.Adapters.File.Port = 6000
	cfg.Adapters.File.PoolSize = 9

	ApplyDefaults(&cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, "/srv", cfg.Content.Filesystem["path"])
	assert.Equal(t, 6000, cfg.Adapters.File.Port)
	assert.Equal(t, 9, cfg.Adapters.File.PoolSize)
	assert.False(t, cfg.Adapters.File.Enabled, "explicit port with enabled unset stays disabled")
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}
