package pool

import "sync"

// Queue is an unbounded FIFO of accepted connections with a blocking Pop.
//
// Every check-and-mutate sequence runs under one mutex, and consumers wait on
// a condition variable guarded by the same mutex. The "is it empty?" check and
// the removal that follows are therefore atomic, so two workers can never both
// observe a single queued connection and race to remove it.
//
// Thread safety:
// All methods are safe for concurrent use. Any number of producers and
// consumers may call Push and Pop at the same time.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	items    []*Conn
	queued   map[*Conn]struct{}
	closed   bool
}

// NewQueue returns an empty, open queue.
func NewQueue() *Queue {
	q := &Queue{
		queued: make(map[*Conn]struct{}),
	}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends c and wakes at most one waiting consumer.
//
// Returns ErrQueueClosed after Close and ErrDuplicateConn if c is already
// waiting in the queue. Ownership of c passes to the queue only when Push
// returns nil.
func (q *Queue) Push(c *Conn) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, dup := q.queued[c]; dup {
		q.mu.Unlock()
		return ErrDuplicateConn
	}

	q.items = append(q.items, c)
	q.queued[c] = struct{}{}
	q.mu.Unlock()

	q.nonEmpty.Signal()
	return nil
}

// Pop blocks until the queue is non-empty, then removes and returns the front
// connection. It returns ErrQueueClosed once the queue is closed; connections
// still queued at that point are handed back by Close, not by Pop.
func (q *Queue) Pop() (*Conn, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Wakeups can be spurious or stolen by another consumer, so the predicate
	// is re-checked every time.
	for len(q.items) == 0 && !q.closed {
		q.nonEmpty.Wait()
	}
	if q.closed {
		return nil, ErrQueueClosed
	}

	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.queued, c)

	if len(q.items) == 0 {
		// Drop the backing array once drained so a burst doesn't pin memory.
		q.items = nil
	}

	return c, nil
}

// Len returns the number of queued connections.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Close marks the queue closed, wakes every waiting consumer and returns the
// connections that were never popped, in arrival order. The caller owns them.
// Calling Close again returns nil.
func (q *Queue) Close() []*Conn {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}

	q.closed = true
	pending := q.items
	q.items = nil
	q.queued = make(map[*Conn]struct{})
	q.mu.Unlock()

	q.nonEmpty.Broadcast()
	return pending
}
