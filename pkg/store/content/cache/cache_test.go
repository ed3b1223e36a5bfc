package cache

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/memory"
	storetesting "github.com/marmos91/filepool/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	content.WritableContentStore
	mu    sync.Mutex
	reads int
}

func (c *countingStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.WritableContentStore.ReadContent(ctx, id)
}

func (c *countingStore) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

type recordingMetrics struct {
	mu      sync.Mutex
	hits    int
	misses  int
	entries int
}

func (r *recordingMetrics) ObserveOperation(string, string, time.Duration, error) {}
func (r *recordingMetrics) RecordBytes(string, string, int64)                     {}

func (r *recordingMetrics) RecordCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingMetrics) SetCacheEntries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = n
}

func newBackend(t *testing.T) *countingStore {
	t.Helper()
	mem, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	return &countingStore{WritableContentStore: mem}
}

func readAll(t *testing.T, store content.ContentStore, id content.ContentID) []byte {
	t.Helper()
	rc, err := store.ReadContent(context.Background(), id)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestCachedStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			store, err := New(newBackend(t), Config{MaxEntries: 8, MaxEntrySize: 4096}, nil)
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestCachedStore_HitSkipsBackend(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	require.NoError(t, backend.WriteContent(ctx, "a.txt", []byte("alpha")))

	m := &recordingMetrics{}
	store, err := New(backend, Config{}, m)
	require.NoError(t, err)

	assert.Equal(t, "alpha", string(readAll(t, store, "a.txt")))
	assert.Equal(t, "alpha", string(readAll(t, store, "a.txt")))
	assert.Equal(t, "alpha", string(readAll(t, store, "a.txt")))

	assert.Equal(t, 1, backend.Reads())
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.entries)
}

func TestCachedStore_LargeBodiesStreamThrough(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	big := make([]byte, 100)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, backend.WriteContent(ctx, "big.bin", big))

	store, err := New(backend, Config{MaxEntrySize: 64}, nil)
	require.NoError(t, err)

	assert.Equal(t, big, readAll(t, store, "big.bin"))
	assert.Equal(t, big, readAll(t, store, "big.bin"))
	assert.Equal(t, 2, backend.Reads())
	assert.Equal(t, 0, store.Len())
}

func TestCachedStore_ExactLimitIsCached(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	require.NoError(t, backend.WriteContent(ctx, "edge", make([]byte, 64)))

	store, err := New(backend, Config{MaxEntrySize: 64}, nil)
	require.NoError(t, err)

	assert.Len(t, readAll(t, store, "edge"), 64)
	assert.Equal(t, 1, store.Len())
}

func TestCachedStore_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	store, err := New(newBackend(t), Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, store.WriteContent(ctx, "f", []byte("v1")))
	assert.Equal(t, "v1", string(readAll(t, store, "f")))

	require.NoError(t, store.WriteContent(ctx, "f", []byte("v2")))
	assert.Equal(t, "v2", string(readAll(t, store, "f")))

	require.NoError(t, store.Delete(ctx, "f"))
	_, err = store.ReadContent(ctx, "f")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

// stallingStore hands out the current body, then holds the read open until
// release is closed.
type stallingStore struct {
	content.WritableContentStore
	started chan struct{}
	release chan struct{}
}

func (s *stallingStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	rc, err := s.WritableContentStore.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	close(s.started)
	<-s.release
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestCachedStore_WriteDuringMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	require.NoError(t, backend.WriteContent(ctx, "f", []byte("v1")))

	stalling := &stallingStore{
		WritableContentStore: backend,
		started:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	store, err := New(stalling, Config{}, nil)
	require.NoError(t, err)

	inflight := make(chan []byte, 1)
	go func() {
		rc, err := store.ReadContent(ctx, "f")
		if err != nil {
			inflight <- nil
			return
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		inflight <- data
	}()

	<-stalling.started
	require.NoError(t, store.WriteContent(ctx, "f", []byte("v2")))
	close(stalling.release)

	// The in-flight reader may see the old body, but must not cache it.
	assert.Equal(t, "v1", string(<-inflight))
	assert.Equal(t, 0, store.Len())

	assert.Equal(t, "v2", string(readAll(t, backend, "f")))
	got, err := store.GetContentSize(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)
}

func TestCachedStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	for _, id := range []content.ContentID{"a", "b", "c"} {
		require.NoError(t, backend.WriteContent(ctx, id, []byte(id)))
	}

	store, err := New(backend, Config{MaxEntries: 2}, nil)
	require.NoError(t, err)

	readAll(t, store, "a")
	readAll(t, store, "b")
	readAll(t, store, "a")
	readAll(t, store, "c") // evicts b

	reads := backend.Reads()
	readAll(t, store, "a")
	assert.Equal(t, reads, backend.Reads(), "a should still be cached")
	readAll(t, store, "b")
	assert.Equal(t, reads+1, backend.Reads(), "b should have been evicted")
}
