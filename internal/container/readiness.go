package container

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxWait      = 30 * time.Second
)

// WaitHTTPPortOpen blocks until the container's HTTP server answers a GET on
// its base URL. Any response counts, whatever the status; only a transport
// failure means not ready. Failed probes are retried every pollInterval until
// the accumulated wait exceeds maxWait. A probe never runs past maxWait from
// the first attempt, so a server that accepts but never answers cannot hold
// the wait open. Non-positive values select the defaults.
func (c *Container) WaitHTTPPortOpen(ctx context.Context, pollInterval, maxWait time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	running, err := c.IsRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("container %s: %w", c.id, ErrNotRunning)
	}

	url, err := c.HTTPURL(ctx)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(maxWait)
	var waited time.Duration
	for {
		probeErr := c.probeUntil(ctx, url, deadline)
		if probeErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		waited += pollInterval
		if waited > maxWait || !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s: %v", ErrReadinessTimeout, url, maxWait, probeErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Container) probeUntil(ctx context.Context, url string, deadline time.Time) error {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return c.probe(ctx, url)
}

func (c *Container) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
