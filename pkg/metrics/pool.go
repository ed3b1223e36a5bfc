package metrics

import "time"

// PoolMetrics provides observability for the worker pool and its connection queue.
//
// Implementations can collect metrics about queue depth, worker occupancy and
// per-connection outcomes. This interface is optional - if not provided to the
// pool, a no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewPoolMetrics()
//	p := pool.New(size, handler, m)
//
//	// Without metrics (no-op)
//	p := pool.New(size, handler, nil)
type PoolMetrics interface {
	// RecordConnectionAccepted counts a connection handed to the pool by the acceptor.
	RecordConnectionAccepted()

	// SetQueueDepth updates the number of connections waiting for a worker.
	SetQueueDepth(depth int)

	// SetActiveWorkers updates the number of workers currently serving.
	SetActiveWorkers(count int32)

	// RecordConnectionServed records a finished connection.
	//
	// Parameters:
	//   - outcome: protocol outcome label (e.g., "found", "not_found", "peer_closed")
	//   - duration: time spent in the Serving state
	RecordConnectionServed(outcome string, duration time.Duration)

	// RecordQueueWait records how long a connection waited before a worker took it.
	RecordQueueWait(wait time.Duration)

	// RecordBytesSent records payload bytes written back to a client.
	RecordBytesSent(bytes int64)

	// RecordConnectionForceClosed counts in-flight connections closed on shutdown timeout.
	RecordConnectionForceClosed()
}

// NewNoopPoolMetrics returns a PoolMetrics that discards everything.
func NewNoopPoolMetrics() PoolMetrics {
	return noopPoolMetrics{}
}

type noopPoolMetrics struct{}

func (noopPoolMetrics) RecordConnectionAccepted()                    {}
func (noopPoolMetrics) SetQueueDepth(int)                            {}
func (noopPoolMetrics) SetActiveWorkers(int32)                       {}
func (noopPoolMetrics) RecordConnectionServed(string, time.Duration) {}
func (noopPoolMetrics) RecordQueueWait(time.Duration)                {}
func (noopPoolMetrics) RecordBytesSent(int64)                        {}
func (noopPoolMetrics) RecordConnectionForceClosed()                 {}
