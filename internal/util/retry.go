package util

import (
	"context"
	"time"
)

// Retry runs fn up to maxAttempts times, doubling the delay between attempts
// starting from baseDelay. The first nil return wins; otherwise the last
// error is returned. Cancelling ctx aborts the wait between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt, delay := 1, baseDelay; ; attempt, delay = attempt+1, delay*2 {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
