package prometheus

import (
	"errors"
	"time"

	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of metrics.StoreMetrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheEntries      prometheus.Gauge
}

// NewStoreMetrics creates a new Prometheus-backed StoreMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() metrics.StoreMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopStoreMetrics()
	}
	return newStoreMetrics(metrics.GetRegistry())
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filepool_store_operations_total",
				Help: "Total number of content store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filepool_store_operation_duration_milliseconds",
				Help: "Duration of content store operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"backend", "operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filepool_store_bytes_total",
				Help: "Total bytes read from or written to content stores",
			},
			[]string{"backend", "direction"},
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filepool_content_cache_lookups_total",
				Help: "Content cache lookups by result",
			},
			[]string{"result"},
		),
		cacheEntries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "filepool_content_cache_entries",
				Help: "Current number of file bodies held by the content cache",
			},
		),
	}
}

func (m *storeMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(backend, operation, operationStatus(err)).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds() * 1000)
}

func (m *storeMetrics) RecordBytes(backend, direction string, bytes int64) {
	m.bytesTotal.WithLabelValues(backend, direction).Add(float64(bytes))
}

func (m *storeMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *storeMetrics) SetCacheEntries(count int) {
	m.cacheEntries.Set(float64(count))
}

// operationStatus separates expected misses from backend failures so
// "file doesn't exist" traffic doesn't look like an outage.
func operationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, content.ErrContentNotFound):
		return "not_found"
	default:
		return "error"
	}
}
