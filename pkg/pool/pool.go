package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/metrics"
)

// Outcome labels how a connection left the Serving state.
type Outcome string

// OutcomePanic is recorded when a handler panics. Handlers define their own
// outcomes for every other exit path.
const OutcomePanic Outcome = "panic"

// Handler runs the per-connection protocol on a connection owned by a worker.
//
// ServeConn must not close c and must not retain it after returning: the
// worker closes the connection on every path once ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, c *Conn) Outcome
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, c *Conn) Outcome

// ServeConn calls f(ctx, c).
func (f HandlerFunc) ServeConn(ctx context.Context, c *Conn) Outcome {
	return f(ctx, c)
}

// Stats is a point-in-time snapshot of pool load.
type Stats struct {
	Size       int
	Active     int32
	Lifetime   uint64
	QueueDepth int
}

// Pool owns a fixed number of workers draining a single connection queue.
//
// Architecture:
// The acceptor is the only producer and calls Submit for each accepted
// connection. Each of the Size workers loops forever: it blocks in Queue.Pop,
// marks itself active, runs the Handler, closes the connection and marks
// itself idle again. The queue and the counters are the only shared state;
// everything a handler touches is owned by its worker for the duration of
// the call.
//
// Lifecycle:
//  1. New: pool is created with its size and handler
//  2. Start: workers are launched; Submit may be called before or after
//  3. Shutdown: queue closed, undelivered connections closed, in-flight
//     connections given until the context deadline, then force-closed
//
// Thread safety:
// Submit, Stats and Shutdown are safe for concurrent use. Start and
// Shutdown run at most once.
type Pool struct {
	size     int
	handler  Handler
	queue    *Queue
	counters *Counters
	metrics  metrics.PoolMetrics

	workers sync.WaitGroup

	// inFlight maps each connection being served to its worker id so that
	// Shutdown can force-close stragglers.
	inFlight sync.Map

	// serveCtx is passed to every handler call and cancelled on shutdown
	// timeout or when the context given to Start is cancelled.
	serveCtx    context.Context
	cancelServe context.CancelFunc

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// New creates a pool of size workers running handler.
//
// Parameters:
//   - size: number of workers (fixed for the pool's lifetime, must be >= 1)
//   - handler: protocol run on each connection (must not be nil)
//   - poolMetrics: optional metrics collector (nil for no metrics)
//
// Panics if size < 1 or handler is nil (programmer error).
func New(size int, handler Handler, poolMetrics metrics.PoolMetrics) *Pool {
	if size < 1 {
		panic(fmt.Sprintf("pool size must be >= 1, got %d", size))
	}
	if handler == nil {
		panic("pool handler cannot be nil")
	}
	if poolMetrics == nil {
		poolMetrics = metrics.NewNoopPoolMetrics()
	}

	serveCtx, cancelServe := context.WithCancel(context.Background())

	return &Pool{
		size:        size,
		handler:     handler,
		queue:       NewQueue(),
		counters:    &Counters{},
		metrics:     poolMetrics,
		serveCtx:    serveCtx,
		cancelServe: cancelServe,
	}
}

// Start launches the workers. Cancelling ctx cancels the context seen by
// in-flight handlers but does not stop the workers; call Shutdown for that.
// Subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		context.AfterFunc(ctx, p.cancelServe)

		for id := 1; id <= p.size; id++ {
			logger.Debug("Creating worker %d", id)
			p.workers.Add(1)
			go p.runWorker(id)
		}
		logger.Info("Worker pool started with %d worker(s)", p.size)
	})
}

// Submit hands an accepted connection to the pool. On success the pool owns c;
// on error (ErrQueueClosed, ErrDuplicateConn) ownership stays with the caller.
func (p *Pool) Submit(c *Conn) error {
	if err := p.queue.Push(c); err != nil {
		return err
	}

	depth := p.queue.Len()
	p.metrics.RecordConnectionAccepted()
	p.metrics.SetQueueDepth(depth)
	logger.Debug("Pushed %s to queue (conn=%s), queue size: %d", c.Peer, c.ID, depth)
	return nil
}

// Stats returns the current load counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Size:       p.size,
		Active:     p.counters.Active(),
		Lifetime:   p.counters.Lifetime(),
		QueueDepth: p.queue.Len(),
	}
}

// Size returns the fixed number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Shutdown stops the pool.
//
// Shutdown flow:
//  1. Close the queue (workers stop after their current connection)
//  2. Close every connection still waiting in the queue
//  3. Wait for workers to finish, up to ctx's deadline
//  4. On timeout: cancel the handler context and force-close in-flight connections
//
// Returns nil if every worker exited, or an error naming how many connections
// were force-closed. Safe to call more than once; later calls return nil.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		err = p.shutdown(ctx)
	})
	return err
}

func (p *Pool) shutdown(ctx context.Context) error {
	defer p.cancelServe()

	pending := p.queue.Close()
	for _, c := range pending {
		_ = c.Close()
	}
	p.metrics.SetQueueDepth(0)
	if len(pending) > 0 {
		logger.Info("Closed %d queued connection(s) that were never served", len(pending))
	}

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()

	logger.Info("Worker pool shutdown: waiting for %d active connection(s)", p.counters.Active())

	select {
	case <-done:
		logger.Info("Worker pool stopped: all workers exited")
		return nil

	case <-ctx.Done():
		p.cancelServe()
		closed := p.forceCloseInFlight()
		logger.Warn("Worker pool shutdown timeout: force-closed %d connection(s)", closed)
		return fmt.Errorf("worker pool shutdown: %d connection(s) force-closed: %w", closed, ctx.Err())
	}
}

func (p *Pool) forceCloseInFlight() int {
	closed := 0
	p.inFlight.Range(func(key, value any) bool {
		c := key.(*Conn)
		if err := c.Close(); err != nil {
			logger.Debug("Error force-closing connection %s on worker %d: %v", c.Peer, value.(int), err)
		} else {
			closed++
			p.metrics.RecordConnectionForceClosed()
		}
		return true
	})
	return closed
}

// runWorker is the Idle -> Serving -> Idle loop of one worker.
func (p *Pool) runWorker(id int) {
	defer p.workers.Done()

	for {
		c, err := p.queue.Pop()
		if err != nil {
			logger.Debug("Worker %d exiting: %v", id, err)
			return
		}

		depth := p.queue.Len()
		p.metrics.SetQueueDepth(depth)
		logger.Debug("Popping from queue, queue size: %d", depth)

		p.serve(id, c)
	}
}

// serve runs the handler on c. The active counter, the in-flight registry and
// the connection itself are released on every exit path, including panics.
func (p *Pool) serve(id int, c *Conn) {
	active, err := p.counters.EnterServing(p.size)
	if err != nil {
		p.counters.DecrementActive()
		_ = c.Close()
		logger.Error("Worker %d: %v", id, err)
		panic(err)
	}

	c.Seq = p.counters.IncrementLifetime()
	p.inFlight.Store(c, id)
	p.metrics.SetActiveWorkers(active)
	p.metrics.RecordQueueWait(time.Since(c.AcceptedAt))

	logger.Info("User number %d on worker %d has connected (peer=%s, concurrent workers: %d)",
		c.Seq, id, c.Peer, active)

	start := time.Now()
	outcome := OutcomePanic

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic serving user %d on worker %d from %s: %v", c.Seq, id, c.Peer, r)
		}

		if err := c.Close(); err != nil {
			logger.Debug("Error closing connection for user %d: %v", c.Seq, err)
		}
		p.inFlight.Delete(c)

		remaining := p.counters.DecrementActive()
		p.metrics.SetActiveWorkers(remaining)
		p.metrics.RecordConnectionServed(string(outcome), time.Since(start))

		logger.Info("User number %d on worker %d finished: %s (concurrent workers: %d)",
			c.Seq, id, outcome, remaining)
	}()

	outcome = p.handler.ServeConn(p.serveCtx, c)
}
