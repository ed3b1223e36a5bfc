// Package ratelimiter throttles how fast the acceptor hands new connections
// to the worker pool.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// AcceptLimiter is a token bucket over accepted connections.
//
// The acceptor calls Wait before each Accept. When the bucket is empty the
// acceptor stops pulling connections off the listen backlog, so a flood of
// clients queues in the kernel instead of in the connection queue.
//
// A zero rate disables limiting entirely; Wait then only honours ctx.
//
// Thread safety:
// All methods are safe for concurrent use.
type AcceptLimiter struct {
	limiter *rate.Limiter
}

// New creates an AcceptLimiter admitting connectionsPerSecond on average with
// bursts of up to burst connections.
//
// Special cases:
//   - connectionsPerSecond = 0: unlimited
//   - burst = 0 with a non-zero rate: burst defaults to the rate
//
// Example:
//
//	// 200 new connections per second, bursts of 50
//	limiter := New(200, 50)
func New(connectionsPerSecond, burst uint) *AcceptLimiter {
	if connectionsPerSecond == 0 {
		return &AcceptLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = connectionsPerSecond
	}

	return &AcceptLimiter{
		limiter: rate.NewLimiter(rate.Limit(connectionsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter never throttles.
func (l *AcceptLimiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available without waiting.
func (l *AcceptLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error if ctx ends first.
func (l *AcceptLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate. Zero switches to unlimited.
//
// The burst follows the new rate only when it had been left at the default
// (equal to the old rate).
func (l *AcceptLimiter) SetLimit(connectionsPerSecond uint) {
	if connectionsPerSecond == 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}

	old := l.limiter.Limit()
	defaultBurst := old != rate.Inf && float64(l.limiter.Burst()) == float64(old)
	l.limiter.SetLimit(rate.Limit(connectionsPerSecond))
	if defaultBurst || old == rate.Inf {
		l.limiter.SetBurst(int(connectionsPerSecond))
	}
}

// Tokens returns the number of connections that could be admitted right now.
// Useful for debugging only; the value changes as soon as it is read.
func (l *AcceptLimiter) Tokens() float64 {
	return l.limiter.Tokens()
}
