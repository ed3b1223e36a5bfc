package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/adapter"
	"github.com/marmos91/filepool/pkg/store/content"
)

// DefaultStopTimeout bounds how long each adapter gets to stop.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by Serve on every call after the first.
var ErrAlreadyServed = errors.New("server: Serve already called")

// Server manages the lifecycle of protocol adapters that serve files from a
// shared content store.
//
// Lifecycle:
//  1. Creation: New() with the content store
//  2. Registration: AddAdapter() for each listener
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation or the first adapter failure stops all
//     adapters in reverse registration order
//
// Thread safety:
// Server is safe for concurrent use. AddAdapter() must be called before Serve().
//
// Example usage:
//
//	srv := server.New(store)
//	srv.AddAdapter(fileserve.New(fileConfig, poolMetrics))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	store content.ContentStore

	// StopTimeout is handed to each adapter's Stop. Zero selects DefaultStopTimeout.
	StopTimeout time.Duration

	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server around the shared content store.
//
// Panics if store is nil (programmer error).
func New(store content.ContentStore) *Server {
	if store == nil {
		panic("content store cannot be nil")
	}

	return &Server{
		store:    store,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers a protocol adapter and injects the shared store.
//
// Each adapter must implement a different protocol and listen on a different
// port. Adapters on port 0 take an OS-assigned port and never conflict.
//
// Returns an error on duplicate protocol or port, or if Serve() was already called.
//
// Panics if a is nil (programmer error).
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add %s adapter: server already serving", a.Protocol())
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetStore(s.store)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Shutdown behavior:
//   - All adapters receive Stop() in reverse registration order
//   - Each Stop() is bounded by StopTimeout
//   - Serve() waits for every adapter's Serve() to return
//
// Returns:
//   - ctx.Err() if shutdown was triggered by the context
//   - the first adapter error, wrapped with its protocol name
//   - ErrAlreadyServed on repeated calls
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true

	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block after Serve stopped listening.
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
				if ctx.Err() == nil {
					errChan <- adapterError{protocol: protocol, err: errors.New("stopped unexpectedly")}
				}
			case ctx.Err() != nil:
				logger.Debug("%s adapter stopped during shutdown: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("Server stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on each adapter in reverse registration order.
// Errors are logged; every adapter is always asked to stop.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	timeout := s.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())
		if err := adp.Stop(ctx); err != nil {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Store returns the shared content store.
func (s *Server) Store() content.ContentStore {
	return s.store
}
