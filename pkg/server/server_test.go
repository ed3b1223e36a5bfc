package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter blocks in Serve until ctx is cancelled or Stop is called, or
// returns serveErr immediately when set.
type fakeAdapter struct {
	protocol string
	port     int
	serveErr error

	store content.ContentStore

	stopOnce sync.Once
	stopped  chan struct{}
	order    *[]string
	orderMu  *sync.Mutex
}

func newFake(protocol string, port int, order *[]string, mu *sync.Mutex) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stopped: make(chan struct{}), order: order, orderMu: mu}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
	case <-f.stopped:
	}
	return nil
}

func (f *fakeAdapter) SetStore(store content.ContentStore) { f.store = store }

func (f *fakeAdapter) Stop(context.Context) error {
	f.stopOnce.Do(func() {
		if f.order != nil {
			f.orderMu.Lock()
			*f.order = append(*f.order, f.protocol)
			f.orderMu.Unlock()
		}
		close(f.stopped)
	})
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func newStore(t *testing.T) content.ContentStore {
	t.Helper()
	store, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	return store
}

func TestNew_NilStorePanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestAddAdapter(t *testing.T) {
	store := newStore(t)
	s := New(store)

	a := newFake("FILE", 54000, nil, nil)
	require.NoError(t, s.AddAdapter(a))
	assert.Same(t, store, a.store, "store is injected")

	assert.ErrorContains(t, s.AddAdapter(newFake("FILE", 54001, nil, nil)), "already registered")
	assert.ErrorContains(t, s.AddAdapter(newFake("OTHER", 54000, nil, nil)), "port 54000")

	// Port 0 is OS-assigned and never conflicts.
	require.NoError(t, s.AddAdapter(newFake("EPHEMERAL-A", 0, nil, nil)))
	require.NoError(t, s.AddAdapter(newFake("EPHEMERAL-B", 0, nil, nil)))

	assert.Len(t, s.Adapters(), 3)
	assert.Panics(t, func() { _ = s.AddAdapter(nil) })
}

func TestServe_NoAdapters(t *testing.T) {
	s := New(newStore(t))
	assert.ErrorContains(t, s.Serve(context.Background()), "no adapters")
}

func TestServe_CancelStopsAdaptersInReverseOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex

	s := New(newStore(t))
	require.NoError(t, s.AddAdapter(newFake("FIRST", 1, &order, &mu)))
	require.NoError(t, s.AddAdapter(newFake("SECOND", 2, &order, &mu)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"SECOND", "FIRST"}, order)

	assert.ErrorIs(t, s.Serve(context.Background()), ErrAlreadyServed)
	assert.Error(t, s.AddAdapter(newFake("LATE", 3, nil, nil)))
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	var order []string
	var mu sync.Mutex

	healthy := newFake("HEALTHY", 1, &order, &mu)
	broken := newFake("BROKEN", 2, &order, &mu)
	broken.serveErr = errors.New("bind: address already in use")

	s := New(newStore(t))
	require.NoError(t, s.AddAdapter(healthy))
	require.NoError(t, s.AddAdapter(broken))

	err := s.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broken.serveErr)
	assert.Contains(t, err.Error(), "BROKEN adapter error")

	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy adapter was not stopped")
	}
}
