package config

import (
	"github.com/marmos91/filepool/pkg/metrics"
	promMetrics "github.com/marmos91/filepool/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// PoolMetrics is the collector for the worker pool (never nil, noop if disabled)
	PoolMetrics metrics.PoolMetrics

	// StoreMetrics is the collector for content stores (never nil, noop if disabled)
	StoreMetrics metrics.StoreMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Server:       nil,
			PoolMetrics:  metrics.NewNoopPoolMetrics(),
			StoreMetrics: metrics.NewNoopStoreMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		BindAddress: cfg.Server.Metrics.BindAddress,
		Port:        cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:       server,
		PoolMetrics:  promMetrics.NewPoolMetrics(),
		StoreMetrics: promMetrics.NewStoreMetrics(),
	}
}
