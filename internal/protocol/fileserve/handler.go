// Package fileserve implements the one-shot file request protocol.
//
// Wire protocol (no framing, no length prefix):
//
//  1. Server -> Client: the prompt "Please request a file: "
//  2. Client -> Server: raw bytes naming a file, read with a single receive
//     of at most BufferSize bytes (longer names are truncated)
//  3. Server -> Client: the file's bytes verbatim, or "File doesn't exist!"
//  4. Server closes the connection
//
// A client that closes before sending a name gets nothing back. There are
// no error codes on the wire: a client sees file contents, the not-found
// message, or a closed connection.
package fileserve

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/pool"
	"github.com/marmos91/filepool/pkg/store/content"
)

const (
	// Prompt is sent as soon as a worker takes the connection.
	Prompt = "Please request a file: "

	// NotFoundMessage is sent when the name does not resolve to readable content.
	NotFoundMessage = "File doesn't exist!"

	// DefaultBufferSize bounds the request read.
	DefaultBufferSize = 4096

	// DefaultReadTimeout bounds the wait for the client's request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds each send.
	DefaultWriteTimeout = 30 * time.Second
)

// Protocol outcomes, reported to the pool as the connection's exit state.
const (
	OutcomeFound          pool.Outcome = "found"
	OutcomeNotFound       pool.Outcome = "not_found"
	OutcomePeerClosed     pool.Outcome = "peer_closed"
	OutcomeTransportError pool.Outcome = "transport_error"
)

// Config tunes the protocol. Zero values select the defaults, except
// TrimLineEnding which defaults to off.
type Config struct {
	// BufferSize is the maximum number of request bytes read.
	BufferSize int

	// ReadTimeout bounds the wait for the request.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write (prompt and response).
	WriteTimeout time.Duration

	// TrimLineEnding strips one trailing "\n" or "\r\n" from the request so
	// line-oriented tools (netcat, telnet) can be used as clients.
	TrimLineEnding bool
}

func (c *Config) applyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// Handler runs the protocol against a content store. It implements
// pool.Handler and is safe for concurrent use by every worker.
type Handler struct {
	store   content.ContentStore
	config  Config
	buffers *bufferPool
	metrics metrics.PoolMetrics
}

// NewHandler creates a protocol handler serving files from store.
//
// Panics if store is nil (programmer error). A nil poolMetrics disables
// byte accounting.
func NewHandler(store content.ContentStore, config Config, poolMetrics metrics.PoolMetrics) *Handler {
	if store == nil {
		panic("fileserve handler requires a content store")
	}
	config.applyDefaults()
	if poolMetrics == nil {
		poolMetrics = metrics.NewNoopPoolMetrics()
	}

	return &Handler{
		store:   store,
		config:  config,
		buffers: newBufferPool(config.BufferSize),
		metrics: poolMetrics,
	}
}

// Config returns the effective configuration.
func (h *Handler) Config() Config {
	return h.config
}

// ServeConn runs one prompt/request/response exchange on c.
//
// It never closes c; the worker does that on every path once ServeConn
// returns. Cancelling ctx unblocks any pending read or write.
//
// Cancellation expires the conn deadline, so each later deadline update is
// followed by a ctx check; a fresh deadline would otherwise revive the conn.
func (h *Handler) ServeConn(ctx context.Context, c *pool.Conn) pool.Outcome {
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	// AwaitingRequest
	if err := h.write(ctx, c, []byte(Prompt)); err != nil {
		logger.Debug("User %d: failed to send prompt to %s: %v", c.Seq, c.Peer, err)
		return OutcomeTransportError
	}

	buf := h.buffers.Get()
	defer h.buffers.Put(buf)

	if err := c.SetReadDeadline(time.Now().Add(h.config.ReadTimeout)); err != nil {
		logger.Debug("User %d: failed to set read deadline: %v", c.Seq, err)
	}
	if err := ctx.Err(); err != nil {
		logger.Debug("User %d: abandoning %s before request: %v", c.Seq, c.Peer, err)
		return OutcomeTransportError
	}

	n, err := c.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			logger.Debug("User %d: %s closed the connection without a request", c.Seq, c.Peer)
			return OutcomePeerClosed
		}
		if isTimeout(err) {
			logger.Warn("User %d: %s sent no request within %s", c.Seq, c.Peer, h.config.ReadTimeout)
		} else {
			logger.Debug("User %d: failed to read request from %s: %v", c.Seq, c.Peer, err)
		}
		return OutcomeTransportError
	}

	// NameReceived: the byte count is the name's length.
	name := string(buf[:n])
	if h.config.TrimLineEnding {
		name = trimLineEnding(name)
	}

	data, err := h.load(ctx, content.ContentID(name))
	if err != nil {
		logger.Info("User %d requested %q: %v", c.Seq, name, err)
		if err := h.write(ctx, c, []byte(NotFoundMessage)); err != nil {
			logger.Debug("User %d: failed to send not-found to %s: %v", c.Seq, c.Peer, err)
			return OutcomeTransportError
		}
		return OutcomeNotFound
	}

	if err := h.write(ctx, c, data); err != nil {
		logger.Debug("User %d: failed to send %q (%d bytes) to %s: %v", c.Seq, name, len(data), c.Peer, err)
		return OutcomeTransportError
	}
	h.metrics.RecordBytesSent(int64(len(data)))

	logger.Info("User %d requested %q: sent %d bytes", c.Seq, name, len(data))
	return OutcomeFound
}

// load reads the whole content into memory. Any failure, whether opening
// or reading, is reported the same way to the client.
func (h *Handler) load(ctx context.Context, id content.ContentID) ([]byte, error) {
	rc, err := h.store.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

func (h *Handler) write(ctx context.Context, c net.Conn, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := c.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.Write(p)
	return err
}

func trimLineEnding(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
		if len(s) > 0 && s[len(s)-1] == '\r' {
			s = s[:len(s)-1]
		}
	}
	return s
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
