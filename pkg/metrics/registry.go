// Package metrics holds the collector interfaces for the worker pool and the
// content stores, their no-op implementations, and the process-wide registry
// the Prometheus implementations register into.
//
// Metrics are off until InitRegistry runs. Before that GetRegistry returns nil
// and callers fall back to the no-op collectors:
//
//	metrics.InitRegistry()
//	p := pool.New(size, handler, prometheus.NewPoolMetrics())
//
//	p := pool.New(size, handler, nil) // no metrics
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var active atomic.Pointer[prometheus.Registry]

// InitRegistry installs the process-wide registry with the Go runtime and
// process collectors. Only the first call has an effect.
func InitRegistry() {
	reg := prometheus.NewRegistry()
	if !active.CompareAndSwap(nil, reg) {
		return
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// GetRegistry returns the installed registry, or nil when metrics are off.
func GetRegistry() *prometheus.Registry {
	return active.Load()
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return active.Load() != nil
}
