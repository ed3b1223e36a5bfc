package prometheus

import (
	"time"

	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// poolMetrics is the Prometheus implementation of metrics.PoolMetrics.
type poolMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsServed      *prometheus.CounterVec
	connectionsForceClosed prometheus.Counter
	serveDuration          *prometheus.HistogramVec
	queueWait              prometheus.Histogram
	queueDepth             prometheus.Gauge
	activeWorkers          prometheus.Gauge
	bytesSent              prometheus.Counter
}

// NewPoolMetrics creates a new Prometheus-backed PoolMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewPoolMetrics() metrics.PoolMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopPoolMetrics()
	}
	return newPoolMetrics(metrics.GetRegistry())
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	return &poolMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filepool_connections_accepted_total",
				Help: "Total number of connections handed to the worker pool",
			},
		),
		connectionsServed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filepool_connections_served_total",
				Help: "Total number of connections served, by protocol outcome",
			},
			[]string{"outcome"},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filepool_connections_force_closed_total",
				Help: "Total number of in-flight connections force-closed during shutdown timeout",
			},
		),
		serveDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filepool_serve_duration_milliseconds",
				Help: "Time a worker spent serving one connection, in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"outcome"},
		),
		queueWait: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "filepool_queue_wait_milliseconds",
				Help: "Time a connection waited in the queue before a worker took it, in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "filepool_queue_depth",
				Help: "Current number of connections waiting for a worker",
			},
		),
		activeWorkers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "filepool_active_workers",
				Help: "Current number of workers serving a connection",
			},
		),
		bytesSent: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filepool_bytes_sent_total",
				Help: "Total file payload bytes sent to clients",
			},
		),
	}
}

func (m *poolMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *poolMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *poolMetrics) SetActiveWorkers(count int32) {
	m.activeWorkers.Set(float64(count))
}

func (m *poolMetrics) RecordConnectionServed(outcome string, duration time.Duration) {
	m.connectionsServed.WithLabelValues(outcome).Inc()
	m.serveDuration.WithLabelValues(outcome).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *poolMetrics) RecordQueueWait(wait time.Duration) {
	m.queueWait.Observe(wait.Seconds() * 1000)
}

func (m *poolMetrics) RecordBytesSent(bytes int64) {
	m.bytesSent.Add(float64(bytes))
}

func (m *poolMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}
