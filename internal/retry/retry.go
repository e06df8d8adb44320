package retry

import (
	"context"
	"time"
)

// DoWithRetry runs fn up to attempts times, doubling the delay between
// tries. Used around the vote upsert, where losing a race against a
// concurrent cast is transient and the next attempt lands on the settled
// row. Returns the last error once attempts are exhausted, or the context
// error if the caller gives up first.
func DoWithRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
