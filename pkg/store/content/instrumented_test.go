package content_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	backend, operation string
	err                error
}

type recordingMetrics struct {
	mu    sync.Mutex
	ops   []observation
	bytes map[string]int64
}

func (r *recordingMetrics) ObserveOperation(backend, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, observation{backend, operation, err})
}

func (r *recordingMetrics) RecordBytes(_ string, direction string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bytes == nil {
		r.bytes = make(map[string]int64)
	}
	r.bytes[direction] += n
}

func (r *recordingMetrics) RecordCacheLookup(bool) {}
func (r *recordingMetrics) SetCacheEntries(int)    {}

// readOnly hides the write methods of a store.
type readOnly struct{ content.ContentStore }

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	mem, err := memory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	m := &recordingMetrics{}
	store := content.Instrument(mem, "memory", m)

	require.NoError(t, store.WriteContent(ctx, "a.txt", []byte("12345")))

	rc, err := store.ReadContent(ctx, "a.txt")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = store.ReadContent(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrContentNotFound)

	require.Len(t, m.ops, 3)
	assert.Equal(t, observation{"memory", "WriteContent", nil}, m.ops[0])
	assert.Equal(t, "ReadContent", m.ops[1].operation)
	assert.NoError(t, m.ops[1].err)
	assert.ErrorIs(t, m.ops[2].err, content.ErrContentNotFound)

	assert.Equal(t, int64(5), m.bytes["write"])
	assert.Equal(t, int64(5), m.bytes["read"])
	assert.Same(t, content.ContentStore(mem), store.Unwrap())
}

func TestInstrumentedStore_ReadOnlyBackend(t *testing.T) {
	ctx := context.Background()
	mem, err := memory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	store := content.Instrument(readOnly{mem}, "memory", nil)

	assert.ErrorIs(t, store.WriteContent(ctx, "a", nil), content.ErrReadOnly)
	assert.ErrorIs(t, store.Delete(ctx, "a"), content.ErrReadOnly)
	assert.NoError(t, store.Close())
}
