package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Logging.Level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Logging.Format",
		},
		{
			name:    "unknown content type",
			mutate:  func(c *Config) { c.Content.Type = "ftp" },
			wantErr: "Content.Type",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "Server.ShutdownTimeout",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Adapters.File.Port = 70000 },
			wantErr: "Adapters.File.Port",
		},
		{
			name:    "bind address is not an IP",
			mutate:  func(c *Config) { c.Adapters.File.BindAddress = "localhost" },
			wantErr: "Adapters.File.BindAddress",
		},
		{
			name:    "no adapter enabled",
			mutate:  func(c *Config) { c.Adapters.File.Enabled = false },
			wantErr: "at least one adapter",
		},
		{
			name:    "pool size zero",
			mutate:  func(c *Config) { c.Adapters.File.PoolSize = 0 },
			wantErr: "pool_size",
		},
		{
			name: "metrics port conflicts with file port",
			mutate: func(c *Config) {
				c.Server.Metrics.Enabled = true
				c.Server.Metrics.Port = c.Adapters.File.Port
			},
			wantErr: "conflicts",
		},
		{
			name:    "metrics bind address is not an IP",
			mutate:  func(c *Config) { c.Server.Metrics.BindAddress = "metrics.local" },
			wantErr: "Server.Metrics.BindAddress",
		},
		{
			name:   "metrics bind address on all interfaces",
			mutate: func(c *Config) { c.Server.Metrics.BindAddress = "0.0.0.0" },
		},
		{
			name:    "burst without rate",
			mutate:  func(c *Config) { c.Adapters.File.AcceptBurst = 5 },
			wantErr: "accept_burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
