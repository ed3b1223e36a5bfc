package config

import (
	"fmt"

	"github.com/marmos91/filepool/pkg/adapter"
	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/marmos91/filepool/pkg/metrics"
)

// CreateAdapters creates all enabled listeners from the configuration.
//
// Parameters:
//   - cfg: The complete filepool configuration
//   - poolMetrics: Optional worker pool metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, poolMetrics metrics.PoolMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.File.Enabled {
		adapters = append(adapters, fileserve.New(cfg.Adapters.File, poolMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
