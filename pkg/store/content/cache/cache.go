// Package cache provides an in-memory LRU of small file bodies in front of
// any content store.
//
// Popular small files are served without touching the backend; larger
// bodies are streamed through untouched. The cache only ever holds complete
// bodies, so a hit is byte-identical to a backend read.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/store/content"
)

const (
	// DefaultMaxEntries bounds the number of cached bodies.
	DefaultMaxEntries = 1024

	// DefaultMaxEntrySize is the largest body (in bytes) that is cached.
	DefaultMaxEntrySize = 1 << 20
)

// Config configures a CachedStore.
type Config struct {
	MaxEntries   int   `mapstructure:"max_entries"`
	MaxEntrySize int64 `mapstructure:"max_entry_size"`
}

// CachedStore is a read-through cache over a ContentStore.
//
// Writes and deletes go to the backend and invalidate the cached entry, so
// the cache never serves a body the backend has replaced through this store.
// Changes made to the backend by other means are picked up once the entry is
// evicted.
//
// A miss only fills the cache if no invalidation happened while the backend
// read was in flight; otherwise the body it read may already be stale.
type CachedStore struct {
	inner        content.ContentStore
	entries      *lru.Cache[content.ContentID, []byte]
	maxEntrySize int64
	metrics      metrics.StoreMetrics

	// mu orders fills against invalidations; generation counts invalidations.
	mu         sync.Mutex
	generation uint64
}

// New wraps inner with an LRU cache. Zero config values select the defaults.
func New(inner content.ContentStore, cfg Config, m metrics.StoreMetrics) (*CachedStore, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxEntrySize <= 0 {
		cfg.MaxEntrySize = DefaultMaxEntrySize
	}
	if m == nil {
		m = metrics.NewNoopStoreMetrics()
	}

	entries, err := lru.New[content.ContentID, []byte](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	return &CachedStore{
		inner:        inner,
		entries:      entries,
		maxEntrySize: cfg.MaxEntrySize,
		metrics:      m,
	}, nil
}

// ReadContent serves id from the cache, or reads it from the backend and
// caches it when the body fits in MaxEntrySize.
func (c *CachedStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if data, ok := c.entries.Get(id); ok {
		c.metrics.RecordCacheLookup(true)
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	c.metrics.RecordCacheLookup(false)

	c.mu.Lock()
	start := c.generation
	c.mu.Unlock()

	rc, err := c.inner.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}

	// Read one byte past the limit to tell "fits" from "too large".
	head, err := io.ReadAll(io.LimitReader(rc, c.maxEntrySize+1))
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to read %q: %w", id, err)
	}

	if int64(len(head)) <= c.maxEntrySize {
		_ = rc.Close()
		c.fill(id, head, start)
		return io.NopCloser(bytes.NewReader(head)), nil
	}

	return &prefixedReadCloser{
		Reader: io.MultiReader(bytes.NewReader(head), rc),
		closer: rc,
	}, nil
}

func (c *CachedStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if data, ok := c.entries.Peek(id); ok {
		return uint64(len(data)), nil
	}
	return c.inner.GetContentSize(ctx, id)
}

func (c *CachedStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	if c.entries.Contains(id) {
		return true, nil
	}
	return c.inner.ContentExists(ctx, id)
}

func (c *CachedStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	return c.inner.GetStorageStats(ctx)
}

func (c *CachedStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	writable, ok := c.inner.(content.WritableContentStore)
	if !ok {
		return content.ErrReadOnly
	}
	defer c.Invalidate(id)
	return writable.WriteContent(ctx, id, data)
}

func (c *CachedStore) Delete(ctx context.Context, id content.ContentID) error {
	writable, ok := c.inner.(content.WritableContentStore)
	if !ok {
		return content.ErrReadOnly
	}
	defer c.Invalidate(id)
	return writable.Delete(ctx, id)
}

// fill caches data unless an invalidation ran since start was taken.
func (c *CachedStore) fill(id content.ContentID, data []byte, start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != start {
		return
	}
	c.entries.Add(id, data)
	c.metrics.SetCacheEntries(c.entries.Len())
}

// Invalidate drops id from the cache and discards any fill still in flight.
func (c *CachedStore) Invalidate(id content.ContentID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.entries.Remove(id) {
		c.metrics.SetCacheEntries(c.entries.Len())
	}
}

// Len returns the number of cached bodies.
func (c *CachedStore) Len() int {
	return c.entries.Len()
}

// Close purges the cache and closes the backend if it holds resources.
func (c *CachedStore) Close() error {
	c.entries.Purge()
	c.metrics.SetCacheEntries(0)
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type prefixedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (p *prefixedReadCloser) Close() error {
	return p.closer.Close()
}
