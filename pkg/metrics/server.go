package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultBindAddress keeps the metrics endpoint local, like the file server.
	DefaultBindAddress = "127.0.0.1"

	// DefaultPort is the conventional Prometheus exporter port.
	DefaultPort = 9090

	// shutdownGrace bounds the HTTP drain when Start's context is cancelled.
	shutdownGrace = 5 * time.Second
)

// ServerConfig configures the metrics HTTP endpoint.
type ServerConfig struct {
	// BindAddress is the IP to listen on. Default: 127.0.0.1
	BindAddress string

	// Port to listen on. Zero picks an ephemeral port; the config layer
	// defaults it to DefaultPort before it gets here.
	Port int
}

func (c *ServerConfig) applyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.Port < 0 {
		c.Port = DefaultPort
	}
}

// Server exposes the global registry over HTTP.
//
// Endpoints:
//   - GET /metrics: Prometheus exposition (503 when metrics are disabled)
//   - GET /healthz: liveness, always "ok"
//   - GET /: plain-text list of the above
type Server struct {
	addr    string
	handler http.Handler
	server  *http.Server

	mu       sync.Mutex
	listener net.Listener

	stopOnce sync.Once
	stopErr  error
}

// NewServer builds a stopped server for the global registry.
func NewServer(config ServerConfig) *Server {
	config.applyDefaults()

	handler := newHandler(GetRegistry())
	addr := net.JoinHostPort(config.BindAddress, strconv.Itoa(config.Port))

	return &Server{
		addr:    addr,
		handler: handler,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// newHandler routes the endpoints. A nil registry means metrics are disabled.
func newHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	} else {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics collection is disabled", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, "filepool\n\n/metrics  Prometheus metrics\n/healthz  liveness\n")
	})

	return mux
}

// Listen binds the configured address. Start calls it when needed; calling it
// first lets the caller learn the bound address before serving.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("metrics server listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start serves until ctx is cancelled, then drains for up to five seconds.
// Returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	logger.Info("Metrics server listening on http://%s/metrics", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down once; later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Warn("Metrics server shutdown: %v", err)
			return
		}
		logger.Debug("Metrics server stopped")
	})
	return s.stopErr
}

// Addr returns the configured "host:port", or the bound address once listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
