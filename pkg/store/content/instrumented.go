package content

import (
	"context"
	"io"
	"time"

	"github.com/marmos91/filepool/pkg/metrics"
)

// InstrumentedStore decorates a store with per-operation metrics.
//
// Every call is timed and reported with the backend label; bytes are counted
// as readers are drained. Write operations are forwarded when the wrapped
// store is writable and fail with ErrReadOnly otherwise.
type InstrumentedStore struct {
	inner   ContentStore
	backend string
	metrics metrics.StoreMetrics
}

// Instrument wraps store. A nil m yields a no-op collector.
func Instrument(store ContentStore, backend string, m metrics.StoreMetrics) *InstrumentedStore {
	if m == nil {
		m = metrics.NewNoopStoreMetrics()
	}
	return &InstrumentedStore{inner: store, backend: backend, metrics: m}
}

// Unwrap returns the decorated store.
func (s *InstrumentedStore) Unwrap() ContentStore {
	return s.inner
}

func (s *InstrumentedStore) ReadContent(ctx context.Context, id ContentID) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.inner.ReadContent(ctx, id)
	s.metrics.ObserveOperation(s.backend, "ReadContent", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &countingReadCloser{ReadCloser: rc, report: func(n int64) {
		s.metrics.RecordBytes(s.backend, "read", n)
	}}, nil
}

func (s *InstrumentedStore) GetContentSize(ctx context.Context, id ContentID) (uint64, error) {
	start := time.Now()
	size, err := s.inner.GetContentSize(ctx, id)
	s.metrics.ObserveOperation(s.backend, "GetContentSize", time.Since(start), err)
	return size, err
}

func (s *InstrumentedStore) ContentExists(ctx context.Context, id ContentID) (bool, error) {
	start := time.Now()
	ok, err := s.inner.ContentExists(ctx, id)
	s.metrics.ObserveOperation(s.backend, "ContentExists", time.Since(start), err)
	return ok, err
}

func (s *InstrumentedStore) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	start := time.Now()
	stats, err := s.inner.GetStorageStats(ctx)
	s.metrics.ObserveOperation(s.backend, "GetStorageStats", time.Since(start), err)
	return stats, err
}

func (s *InstrumentedStore) WriteContent(ctx context.Context, id ContentID, data []byte) error {
	writable, ok := s.inner.(WritableContentStore)
	if !ok {
		return ErrReadOnly
	}

	start := time.Now()
	err := writable.WriteContent(ctx, id, data)
	s.metrics.ObserveOperation(s.backend, "WriteContent", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes(s.backend, "write", int64(len(data)))
	}
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id ContentID) error {
	writable, ok := s.inner.(WritableContentStore)
	if !ok {
		return ErrReadOnly
	}

	start := time.Now()
	err := writable.Delete(ctx, id)
	s.metrics.ObserveOperation(s.backend, "Delete", time.Since(start), err)
	return err
}

// Close closes the wrapped store if it holds resources.
func (s *InstrumentedStore) Close() error {
	if closer, ok := s.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// countingReadCloser reports the bytes read once, on Close.
type countingReadCloser struct {
	io.ReadCloser
	n      int64
	report func(int64)
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReadCloser) Close() error {
	err := c.ReadCloser.Close()
	if c.n > 0 {
		c.report(c.n)
		c.n = 0
	}
	return err
}
