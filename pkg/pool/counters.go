package pool

import (
	"fmt"
	"sync/atomic"
)

// Counters holds the load counters shared by every worker in a pool.
//
// The two counters are independent: no invariant spans both, so each is a
// single atomic word and readers never block writers.
type Counters struct {
	active   atomic.Int32
	lifetime atomic.Uint64
}

// IncrementActive adds one serving worker and returns the new count.
func (c *Counters) IncrementActive() int32 {
	return c.active.Add(1)
}

// DecrementActive removes one serving worker and returns the new count.
func (c *Counters) DecrementActive() int32 {
	return c.active.Add(-1)
}

// Active returns the number of workers currently serving a connection.
func (c *Counters) Active() int32 {
	return c.active.Load()
}

// IncrementLifetime counts one more connection taken by a worker and returns
// the new total, which doubles as that connection's sequence number.
func (c *Counters) IncrementLifetime() uint64 {
	return c.lifetime.Add(1)
}

// Lifetime returns the number of connections taken by workers so far.
func (c *Counters) Lifetime() uint64 {
	return c.lifetime.Load()
}

// EnterServing marks a worker as serving and checks the result against limit.
//
// The comparison uses the value returned by the increment itself, so it can't
// be confused by concurrent decrements. When the limit is exceeded the
// increment is kept (the caller still owes the matching DecrementActive) and
// an error wrapping ErrPoolInvariant is returned.
func (c *Counters) EnterServing(limit int) (int32, error) {
	n := c.IncrementActive()
	if int(n) > limit {
		return n, fmt.Errorf("%w: %d > %d", ErrPoolInvariant, n, limit)
	}
	return n, nil
}
