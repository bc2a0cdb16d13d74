// Package retry provides bounded retry with optional exponential backoff,
// both for arbitrary operations and for HTTP requests that may answer with
// 429 or 5xx.
package retry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // Exponential backoff
}

func (c Config) delay(attempt int) time.Duration {
	if !c.Backoff {
		return c.Delay
	}
	return time.Duration(1<<uint(attempt-1)) * c.Delay
}

// WithRetry runs fn up to config.MaxAttempts times, sleeping between
// attempts. The context cancels the wait, not a running fn.
func WithRetry(ctx context.Context, config Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.delay(attempt)):
				continue
			}
		}
		return nil
	}

	return lastErr
}

// Do issues an HTTP request built by build, retrying on transport errors,
// 429 and 5xx responses. A Retry-After header on a 429 overrides the
// configured delay. Any other response is returned to the caller as-is,
// including non-2xx ones.
func Do(ctx context.Context, client *http.Client, config Config, build func() (*http.Request, error)) (*http.Response, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay <= 0 {
		config.Delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err == nil && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return resp, nil
		}

		delay := config.delay(attempt)
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("http status %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests {
				if d, ok := retryAfter(resp); ok {
					delay = d
				}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt == config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
