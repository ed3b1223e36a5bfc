// Command filepool-client requests a file from a filepool server, optionally
// from many concurrent connections, and checks every response.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/filepool/pkg/client"
	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:54000", "Server address")
	file := flag.String("file", "test.txt", "Name of the file to request")
	n := flag.Int("n", 1, "Number of requests")
	concurrency := flag.Int("concurrency", 0, "Maximum requests in flight (0 = all at once)")
	expect := flag.String("expect", "", "Expected contents, or @path to read them from a file")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-request timeout")
	flag.Parse()

	if err := run(*addr, *file, *n, *concurrency, *expect, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, file string, n, concurrency int, expect string, timeout time.Duration) error {
	if n < 1 {
		return fmt.Errorf("-n must be at least 1")
	}

	want, err := loadExpected(expect)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &client.Client{Timeout: timeout}

	// With a single request and nothing to compare against, print the body.
	if n == 1 && want == nil {
		resp, err := c.Fetch(ctx, addr, file)
		if err != nil {
			return err
		}
		if !resp.Found {
			return fmt.Errorf("%s: file doesn't exist", file)
		}
		_, err = os.Stdout.Write(resp.Body)
		return err
	}

	var found, missing atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range n {
		g.Go(func() error {
			resp, err := c.Fetch(gctx, addr, file)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			if !resp.Found {
				missing.Add(1)
				if want != nil {
					return fmt.Errorf("request %d: %s doesn't exist", i, file)
				}
				return nil
			}
			found.Add(1)
			if want != nil && !bytes.Equal(resp.Body, want) {
				return fmt.Errorf("request %d: got %d bytes, want %d bytes matching expectation", i, len(resp.Body), len(want))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%d request(s) in %v: %d found, %d missing\n",
		n, time.Since(start).Round(time.Millisecond), found.Load(), missing.Load())
	return nil
}

// loadExpected returns nil when no expectation was given.
func loadExpected(expect string) ([]byte, error) {
	if expect == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(expect, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read expected contents: %w", err)
		}
		return data, nil
	}
	return []byte(expect), nil
}
