package pool

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is an accepted client connection travelling from the acceptor, through
// the queue, to exactly one worker.
//
// Ownership is exclusive at every stage: once a worker pops a Conn no other
// goroutine reads from or writes to it. Close is idempotent so the worker, the
// queue drain on shutdown and a force-close can all call it safely.
type Conn struct {
	net.Conn

	// ID correlates log lines for this connection.
	ID uuid.UUID

	// Peer is the best-effort "host:port" of the remote end.
	Peer string

	// AcceptedAt is when the acceptor handed the connection over.
	AcceptedAt time.Time

	// Seq is the lifetime sequence number assigned by the worker that serves
	// this connection. Zero while the connection is still queued.
	Seq uint64

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an accepted net.Conn.
func NewConn(nc net.Conn) *Conn {
	peer := "unknown"
	if addr := nc.RemoteAddr(); addr != nil {
		peer = addr.String()
	}

	return &Conn{
		Conn:       nc,
		ID:         uuid.New(),
		Peer:       peer,
		AcceptedAt: time.Now(),
	}
}

// Close closes the underlying connection once. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// PeerHostPort splits Peer into host and port. Either part may be empty when
// the address could not be parsed.
func (c *Conn) PeerHostPort() (string, string) {
	host, port, err := net.SplitHostPort(c.Peer)
	if err != nil {
		return c.Peer, ""
	}
	return host, port
}
