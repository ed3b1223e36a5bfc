package pool

import "errors"

var (
	// ErrQueueClosed is returned by Push and Pop once the queue has been closed.
	ErrQueueClosed = errors.New("connection queue closed")

	// ErrDuplicateConn is returned when a connection that is already queued is pushed again.
	ErrDuplicateConn = errors.New("connection already queued")

	// ErrPoolInvariant reports more serving workers than the pool owns.
	// It means the queue/counter synchronization is broken and is never recovered.
	ErrPoolInvariant = errors.New("active worker count exceeds pool size")
)
