package adapter

import (
	"context"

	"github.com/marmos91/filepool/pkg/store/content"
)

// Adapter represents a protocol-specific listener that can be managed by the
// server orchestrator.
//
// Each adapter owns its listener and its worker pool and serves files from
// the shared content store injected with SetStore.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Store injection: SetStore() provides the shared content store
//  3. Startup: Serve() starts listening and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetStore() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for in-flight connections to complete (with timeout)
	//   - Clean up resources
	//
	// If Serve returns before context cancellation, the orchestrator treats it
	// as a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// SetStore injects the content store files are served from.
	//
	// Called exactly once by the orchestrator before Serve().
	SetStore(store content.ContentStore)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve(), or without Serve() ever running
	//   - Respect the context timeout
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is listening on, or the configured
	// port if it has not started yet.
	Port() int
}
