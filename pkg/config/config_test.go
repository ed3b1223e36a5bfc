package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.Equal(t, ".", cfg.Content.Filesystem["path"])
	assert.True(t, cfg.Adapters.File.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Adapters.File.BindAddress)
	assert.Equal(t, 54000, cfg.Adapters.File.Port)
	assert.Equal(t, 5, cfg.Adapters.File.PoolSize)
	assert.Equal(t, 4096, cfg.Adapters.File.BufferSize)
	assert.False(t, cfg.Adapters.File.TrimLineEnding)
	assert.False(t, cfg.Server.Metrics.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  shutdown_timeout: 5s
content:
  type: memory
  memory:
    files:
      - name: test.txt
        contents: "hello\n"
  cache:
    enabled: true
    max_entries: 10
adapters:
  file:
    enabled: true
    bind_address: 0.0.0.0
    port: 6000
    pool_size: 2
    read_timeout: 2s
    accept_rate: 100
    trim_line_ending: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Content.Type)
	assert.True(t, cfg.Content.Cache.Enabled)
	assert.Equal(t, 10, cfg.Content.Cache.MaxEntries)

	file := cfg.Adapters.File
	assert.Equal(t, "0.0.0.0", file.BindAddress)
	assert.Equal(t, 6000, file.Port)
	assert.Equal(t, 2, file.PoolSize)
	assert.Equal(t, 2*time.Second, file.ReadTimeout)
	assert.Equal(t, 30*time.Second, file.WriteTimeout, "unset values get defaults")
	assert.Equal(t, uint(100), file.AcceptRate)
	assert.True(t, file.TrimLineEnding)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
adapters:
  file:
    enabled: true
    port: 6000
    pool_size: 2
`)

	t.Setenv("FILEPOOL_ADAPTERS_FILE_POOL_SIZE", "8")
	t.Setenv("FILEPOOL_ADAPTERS_FILE_READ_TIMEOUT", "1m")
	t.Setenv("FILEPOOL_LOGGING_LEVEL", "warn")
	t.Setenv("FILEPOOL_CONTENT_FILESYSTEM_PATH", "/srv/files")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Adapters.File.PoolSize)
	assert.Equal(t, 6000, cfg.Adapters.File.Port)
	assert.Equal(t, time.Minute, cfg.Adapters.File.ReadTimeout)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "/srv/files", cfg.Content.Filesystem["path"])
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("FILEPOOL_ADAPTERS_FILE_POOL_SIZE=3\nFILEPOOL_ADAPTERS_FILE_PORT=7000\n"), 0644))

	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	// Variables already in the environment win over .env.
	t.Setenv("FILEPOOL_ADAPTERS_FILE_PORT", "7100")
	// Registered with t.Setenv so it is restored after godotenv sets it.
	t.Setenv("FILEPOOL_ADAPTERS_FILE_POOL_SIZE", "")
	require.NoError(t, os.Unsetenv("FILEPOOL_ADAPTERS_FILE_POOL_SIZE"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Adapters.File.PoolSize)
	assert.Equal(t, 7100, cfg.Adapters.File.Port)
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "adapters: [not, a, map")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
content:
  type: floppy
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "Content.Type")
}

func TestGetDefaultConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	assert.Equal(t, filepath.Join(xdg, "filepool"), GetConfigDir())
	assert.Equal(t, filepath.Join(xdg, "filepool", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, ConfigExists())
}
