package e2e

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/marmos91/filepool/pkg/client"
	"github.com/marmos91/filepool/pkg/server"
	"github.com/marmos91/filepool/pkg/store/content"
)

// TestContext provides a complete testing environment with:
// - A content store built by the config factory
// - A running filepool server on an ephemeral port
// - Cleanup mechanisms
type TestContext struct {
	T            testing.TB
	Config       *TestConfig
	Server       *server.Server
	Adapter      *fileserve.FileAdapter
	ContentStore content.WritableContentStore
	Addr         string
	Client       *client.Client
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	tempDirs     []string
}

// NewTestContext creates a new test environment with the specified
// configuration and starts the server.
func NewTestContext(t testing.TB, config *TestConfig) *TestContext {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	tc := &TestContext{
		T:      t,
		Config: config,
		Client: &client.Client{Timeout: 30 * time.Second},
		ctx:    ctx,
		cancel: cancel,
	}

	tc.setupStore()
	tc.startServer()

	return tc
}

func (tc *TestContext) setupStore() {
	tc.T.Helper()

	var err error
	tc.ContentStore, err = tc.Config.CreateContentStore(tc.ctx, tc)
	if err != nil {
		tc.T.Fatalf("Failed to create content store: %v", err)
	}
}

func (tc *TestContext) startServer() {
	tc.T.Helper()

	// Always use ERROR level to keep test output clean
	logger.SetLevel("ERROR")

	poolSize := tc.Config.PoolSize
	if poolSize == 0 {
		poolSize = fileserve.DefaultPoolSize
	}

	tc.Adapter = fileserve.New(fileserve.FileConfig{
		Enabled:         true,
		BindAddress:     "127.0.0.1",
		Port:            0,
		PoolSize:        poolSize,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, nil)

	tc.Server = server.New(tc.ContentStore)
	if err := tc.Server.AddAdapter(tc.Adapter); err != nil {
		tc.T.Fatalf("Failed to add file adapter: %v", err)
	}

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Serve(tc.ctx); err != nil && err != context.Canceled {
			tc.T.Logf("Server error: %v", err)
		}
	}()

	tc.waitForServer()
}

// waitForServer waits for the adapter to be listening.
func (tc *TestContext) waitForServer() {
	tc.T.Helper()

	select {
	case <-tc.Adapter.Ready():
		tc.Addr = tc.Adapter.Addr().String()
	case <-time.After(10 * time.Second):
		tc.T.Fatal("Timeout waiting for server to start")
	}
}

// Cleanup stops the server, closes the store and removes temporary files.
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	if tc.cancel != nil {
		tc.cancel()
	}
	tc.wg.Wait()

	if closer, ok := tc.ContentStore.(io.Closer); ok {
		_ = closer.Close()
	}

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

// Put stores a file so the server can serve it.
func (tc *TestContext) Put(name string, data []byte) {
	tc.T.Helper()

	if err := tc.ContentStore.WriteContent(tc.ctx, content.ContentID(name), data); err != nil {
		tc.T.Fatalf("Failed to write %s: %v", name, err)
	}
}

// Fetch requests name from the running server.
func (tc *TestContext) Fetch(name string) *client.Response {
	tc.T.Helper()

	resp, err := tc.Client.Fetch(tc.ctx, tc.Addr, name)
	if err != nil {
		tc.T.Fatalf("Failed to fetch %s: %v", name, err)
	}
	return resp
}

// CreateTempDir creates a temporary directory and registers it for cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}

// GetConfig returns the test configuration
func (tc *TestContext) GetConfig() *TestConfig {
	return tc.Config
}
