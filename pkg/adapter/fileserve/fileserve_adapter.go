package fileserve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	proto "github.com/marmos91/filepool/internal/protocol/fileserve"
	"github.com/marmos91/filepool/internal/ratelimiter"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/pool"
	"github.com/marmos91/filepool/pkg/store/content"
)

const (
	// DefaultBindAddress keeps the server local unless configured otherwise.
	DefaultBindAddress = "127.0.0.1"

	// DefaultPort is the well-known port of the file server.
	DefaultPort = 54000

	// DefaultPoolSize is the number of workers serving connections.
	DefaultPoolSize = 5

	// Bounds of the retry delay after consecutive Accept errors.
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// FileAdapter implements the adapter.Adapter interface for the file request
// protocol.
//
// Architecture:
// FileAdapter is the acceptor. A single goroutine accepts TCP connections,
// wraps each one in a pool.Conn and submits it to a fixed-size worker pool.
// The pool's workers run the protocol handler; the adapter never touches a
// connection after Submit.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. Queued connections closed, in-flight connections given ShutdownTimeout
//  4. Remaining connections force-closed by the pool
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is initiated once via
// sync.Once no matter how many times Stop() is called.
type FileAdapter struct {
	config FileConfig

	store   content.ContentStore
	metrics metrics.PoolMetrics
	limiter *ratelimiter.AcceptLimiter

	// listen creates the listener; nil means net.Listen.
	listen func(network, address string) (net.Listener, error)

	// mu guards listener and pool, which are created by Serve.
	mu       sync.Mutex
	listener net.Listener
	pool     *pool.Pool

	// started is set once Serve begins; Stop only waits on done if it is set.
	started atomic.Bool

	// ready is closed once the listener is bound and the pool is running.
	ready chan struct{}

	// shutdown is closed when shutdown is initiated.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// done is closed when Serve returns.
	done chan struct{}
}

// FileConfig holds configuration parameters for the file server.
//
// Default values (applied by New if zero):
//   - BindAddress: 127.0.0.1
//   - Port: 0, meaning an OS-assigned port (pkg/config defaults it to 54000)
//   - PoolSize: 5
//   - BufferSize: 4096
//   - ReadTimeout / WriteTimeout: 30s
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m
//   - AcceptRate: 0 (unlimited)
type FileConfig struct {
	// Enabled controls whether the file adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the interface to listen on.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"omitempty,ip"`

	// Port is the TCP port to listen on. 0 lets the OS pick one.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// PoolSize is the fixed number of workers. Connections beyond this wait
	// in the queue.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size" validate:"min=0,max=10000"`

	// BufferSize is the maximum number of request bytes read from a client.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size" validate:"min=0,max=1048576"`

	// ReadTimeout bounds the wait for a client's request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds each write to a client.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// ShutdownTimeout is how long in-flight connections get to finish during
	// shutdown before they are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the interval at which pool load is logged.
	// 0 selects the default; use a negative value to disable.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval"`

	// AcceptRate limits new connections per second. 0 means unlimited.
	AcceptRate uint `mapstructure:"accept_rate" yaml:"accept_rate"`

	// AcceptBurst is the number of connections accepted back to back before
	// AcceptRate applies. 0 defaults to AcceptRate.
	AcceptBurst uint `mapstructure:"accept_burst" yaml:"accept_burst"`

	// TrimLineEnding strips a trailing newline from requested names.
	TrimLineEnding bool `mapstructure:"trim_line_ending" yaml:"trim_line_ending"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *FileConfig) applyDefaults() {
	// Enabled and Port defaults are handled in pkg/config/defaults.go
	// to allow explicit values from configuration files.

	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.BufferSize <= 0 {
		c.BufferSize = proto.DefaultBufferSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = proto.DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = proto.DefaultWriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks the configuration after defaults are applied.
func (c *FileConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if net.ParseIP(c.BindAddress) == nil {
		return fmt.Errorf("invalid bind address %q: must be an IP address", c.BindAddress)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates a new FileAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetStore() to inject the
// content store, then call Serve() to start accepting connections.
//
// Parameters:
//   - config: Listener, pool and protocol configuration
//   - poolMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails.
func New(config FileConfig, poolMetrics metrics.PoolMetrics) *FileAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid file adapter config: %v", err))
	}

	if poolMetrics == nil {
		poolMetrics = metrics.NewNoopPoolMetrics()
	}

	limiter := ratelimiter.New(config.AcceptRate, config.AcceptBurst)
	if limiter.Unlimited() {
		logger.Debug("File server accept rate: unlimited")
	} else {
		logger.Debug("File server accept rate: %d/s (burst %d)", config.AcceptRate, config.AcceptBurst)
	}

	return &FileAdapter{
		config:   config,
		metrics:  poolMetrics,
		limiter:  limiter,
		ready:    make(chan struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetStore injects the content store files are served from.
func (a *FileAdapter) SetStore(store content.ContentStore) {
	a.store = store
	logger.Debug("File server content store configured")
}

// Serve binds the listener, starts the worker pool and accepts connections
// until the context is cancelled or Stop() is called.
//
// Each accepted connection is logged ("<host> connected on port <port>") and
// submitted to the pool's queue; if the pool has already shut down the
// connection is closed immediately.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be created, no store was set, or
//     in-flight connections had to be force-closed
//
// Thread safety:
// Serve() should only be called once per FileAdapter instance.
func (a *FileAdapter) Serve(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("file server already started")
	}
	defer close(a.done)

	if a.store == nil {
		return errors.New("file server: content store not configured")
	}

	addr := net.JoinHostPort(a.config.BindAddress, strconv.Itoa(a.config.Port))
	listen := a.listen
	if listen == nil {
		listen = net.Listen
	}
	listener, err := listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create file server listener on %s: %w", addr, err)
	}

	handler := proto.NewHandler(a.store, proto.Config{
		BufferSize:     a.config.BufferSize,
		ReadTimeout:    a.config.ReadTimeout,
		WriteTimeout:   a.config.WriteTimeout,
		TrimLineEnding: a.config.TrimLineEnding,
	}, a.metrics)
	p := pool.New(a.config.PoolSize, handler, a.metrics)

	a.mu.Lock()
	a.listener = listener
	a.pool = p
	a.mu.Unlock()

	// In-flight handlers only see cancellation through the pool's shutdown
	// timeout, not directly through ctx.
	p.Start(context.WithoutCancel(ctx))

	logger.Info("File server listening on %s", listener.Addr())
	logger.Debug("File server config: pool_size=%d buffer_size=%d read_timeout=%v write_timeout=%v",
		a.config.PoolSize, a.config.BufferSize, a.config.ReadTimeout, a.config.WriteTimeout)

	close(a.ready)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("File server shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.done:
		}
	}()

	// Stop() may have run before the listener existed.
	select {
	case <-a.shutdown:
		_ = listener.Close()
		return a.gracefulShutdown()
	default:
	}

	if a.config.MetricsLogInterval > 0 {
		go a.logMetrics(ctx)
	}

	waitCtx, cancelWait := context.WithCancel(context.Background())
	defer cancelWait()
	go func() {
		select {
		case <-a.shutdown:
			cancelWait()
		case <-waitCtx.Done():
		}
	}()

	var backoff acceptBackoff
	for {
		if err := a.limiter.Wait(waitCtx); err != nil {
			return a.gracefulShutdown()
		}

		nc, err := listener.Accept()
		if err != nil {
			select {
			case <-a.shutdown:
				return a.gracefulShutdown()
			default:
			}

			delay := backoff.next()
			logger.Warn("Error accepting file server connection: %v; retrying in %v", err, delay)
			select {
			case <-a.shutdown:
				return a.gracefulShutdown()
			case <-time.After(delay):
			}
			continue
		}
		backoff.reset()

		c := pool.NewConn(nc)
		host, port := c.PeerHostPort()
		logger.Info("%s connected on port %s", host, port)

		if err := p.Submit(c); err != nil {
			logger.Debug("Dropping connection from %s: %v", c.Peer, err)
			_ = c.Close()
		}
	}
}

// acceptBackoff spaces out Accept retries so a persistent error such as
// EMFILE does not spin the acceptor.
type acceptBackoff struct {
	delay time.Duration
}

// next returns the delay before the next retry: minAcceptDelay, doubling per
// consecutive error up to maxAcceptDelay.
func (b *acceptBackoff) next() time.Duration {
	if b.delay == 0 {
		b.delay = minAcceptDelay
	} else {
		b.delay *= 2
	}
	if b.delay > maxAcceptDelay {
		b.delay = maxAcceptDelay
	}
	return b.delay
}

func (b *acceptBackoff) reset() {
	b.delay = 0
}

// initiateShutdown closes the shutdown channel and the listener once.
func (a *FileAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("File server shutdown initiated")
		close(a.shutdown)

		a.mu.Lock()
		listener := a.listener
		a.mu.Unlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing file server listener: %v", err)
			}
		}
	})
}

// gracefulShutdown drains the pool, allowing in-flight connections up to
// ShutdownTimeout.
func (a *FileAdapter) gracefulShutdown() error {
	a.mu.Lock()
	p := a.pool
	a.mu.Unlock()

	stats := p.Stats()
	logger.Info("File server graceful shutdown: %d active, %d queued connection(s) (timeout: %v)",
		stats.Active, stats.QueueDepth, a.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("file server shutdown: %w", err)
	}

	logger.Info("File server stopped after serving %d connection(s)", p.Stats().Lifetime)
	return nil
}

// Stop initiates graceful shutdown and waits for Serve to return or ctx to
// expire. Calling Stop on an adapter that was never served returns nil.
func (a *FileAdapter) Stop(ctx context.Context) error {
	a.initiateShutdown()

	if !a.started.Load() {
		return nil
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		logger.Warn("File server stop: context ended before shutdown completed: %v", ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs pool load for operators.
func (a *FileAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(a.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case <-ticker.C:
			stats := a.Stats()
			logger.Info("File server metrics: active_workers=%d/%d lifetime_connections=%d queue_depth=%d",
				stats.Active, stats.Size, stats.Lifetime, stats.QueueDepth)
		}
	}
}

// Ready returns a channel closed once the listener is bound and workers are running.
func (a *FileAdapter) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound listener address, or nil before Serve binds it.
func (a *FileAdapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stats returns the pool's load counters. Zero before Serve starts the pool.
func (a *FileAdapter) Stats() pool.Stats {
	a.mu.Lock()
	p := a.pool
	a.mu.Unlock()

	if p == nil {
		return pool.Stats{Size: a.config.PoolSize}
	}
	return p.Stats()
}

// Port returns the bound TCP port once listening, otherwise the configured port.
func (a *FileAdapter) Port() int {
	if tcpAddr, ok := a.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return a.config.Port
}

// Protocol returns "FILE" as the protocol identifier.
func (a *FileAdapter) Protocol() string {
	return "FILE"
}
