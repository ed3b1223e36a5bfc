package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// startServer runs a file adapter over a memory store on an ephemeral port.
func startServer(t *testing.T, files map[string]string) string {
	t.Helper()

	store, err := memory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	for name, body := range files {
		require.NoError(t, store.WriteContent(context.Background(), content.ContentID(name), []byte(body)))
	}

	a := fileserve.New(fileserve.FileConfig{PoolSize: 3, ShutdownTimeout: 2 * time.Second}, nil)
	a.SetStore(store)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx) }()

	select {
	case <-a.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return a.Addr().String()
}

func TestFetch_AgainstServer(t *testing.T) {
	files := make(map[string]string)
	for i := range 10 {
		files[fmt.Sprintf("file-%d.txt", i)] = fmt.Sprintf("contents of file %d\n", i)
	}
	addr := startServer(t, files)

	c := &Client{Timeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(context.Background())
	for name, want := range files {
		g.Go(func() error {
			resp, err := c.Fetch(ctx, addr, name)
			if err != nil {
				return err
			}
			if !resp.Found || string(resp.Body) != want {
				return fmt.Errorf("%s: got found=%t body=%q", name, resp.Found, resp.Body)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	resp, err := c.Fetch(context.Background(), addr, "missing.txt")
	require.NoError(t, err)
	assert.False(t, resp.Found)
}
