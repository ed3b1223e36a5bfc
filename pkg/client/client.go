// Package client requests files from a filepool server.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	proto "github.com/marmos91/filepool/internal/protocol/fileserve"
)

// ErrUnexpectedPrompt is returned when the server greets with something other
// than the file request prompt.
var ErrUnexpectedPrompt = errors.New("unexpected prompt")

// DefaultMaxResponseSize caps how much of a response Fetch buffers.
const DefaultMaxResponseSize = 64 << 20

// Response is the outcome of one file request.
type Response struct {
	// Found is false when the server answered with the not-found message.
	// A file whose contents are exactly that message is indistinguishable
	// from a miss.
	Found bool

	// Body holds the file contents when Found is true.
	Body []byte
}

// Client requests files over the one-shot protocol. The zero value is usable.
type Client struct {
	// Dialer opens connections. Nil uses a net.Dialer whose Timeout is Timeout.
	Dialer *net.Dialer

	// Timeout bounds the whole exchange when ctx carries no earlier deadline.
	// Zero means no timeout beyond ctx.
	Timeout time.Duration

	// MaxResponseSize caps the buffered response. Zero uses
	// DefaultMaxResponseSize.
	MaxResponseSize int64
}

// Fetch requests name from the server at addr with a zero Client.
func Fetch(ctx context.Context, addr, name string) (*Response, error) {
	var c Client
	return c.Fetch(ctx, addr, name)
}

func (c *Client) dialer() *net.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{Timeout: c.Timeout}
}

// Fetch dials addr, waits for the prompt, sends name and reads until the
// server closes the connection.
func (c *Client) Fetch(ctx context.Context, addr, name string) (*Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	conn, err := c.dialer().DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Closing the socket unblocks any pending read or write on cancel.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	resp, err := c.exchange(conn, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %q: %w", name, ctxErr)
		}
		// The socket deadline is the ctx deadline and may fire first.
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("fetch %q: %w", name, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("fetch %q: %w", name, err)
	}
	return resp, nil
}

func (c *Client) exchange(conn net.Conn, name string) (*Response, error) {
	prompt := make([]byte, len(proto.Prompt))
	if _, err := io.ReadFull(conn, prompt); err != nil {
		return nil, fmt.Errorf("read prompt: %w", err)
	}
	if string(prompt) != proto.Prompt {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedPrompt, prompt)
	}

	if _, err := conn.Write([]byte(name)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	limit := c.MaxResponseSize
	if limit <= 0 {
		limit = DefaultMaxResponseSize
	}

	body, err := io.ReadAll(io.LimitReader(conn, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}

	if string(body) == proto.NotFoundMessage {
		return &Response{Found: false}, nil
	}
	return &Response{Found: true, Body: body}, nil
}
