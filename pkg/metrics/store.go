package metrics

import "time"

// StoreMetrics provides observability for content store backends.
//
// Backends report each lookup with its latency and result; the LRU cache
// reports hits and misses. A nil StoreMetrics is never passed around - use
// NewNoopStoreMetrics instead.
type StoreMetrics interface {
	// ObserveOperation records one backend call.
	//
	// Parameters:
	//   - backend: store type ("filesystem", "memory", "s3", "badger")
	//   - operation: method name (e.g., "ReadContent", "WriteContent")
	//   - duration: time taken by the call
	//   - err: error returned by the call, nil on success
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordBytes records bytes read from or written to a backend.
	RecordBytes(backend, direction string, bytes int64)

	// RecordCacheLookup records a content cache hit or miss.
	RecordCacheLookup(hit bool)

	// SetCacheEntries updates the number of bodies held by the content cache.
	SetCacheEntries(count int)
}

// NewNoopStoreMetrics returns a StoreMetrics that discards everything.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) ObserveOperation(string, string, time.Duration, error) {}
func (noopStoreMetrics) RecordBytes(string, string, int64)                     {}
func (noopStoreMetrics) RecordCacheLookup(bool)                                {}
func (noopStoreMetrics) SetCacheEntries(int)                                   {}
