package chain

import (
	"context"
	"time"
)

const maxRetryDelay = 5 * time.Second

// withRetry runs fn until it succeeds, doubling the delay between attempts up to
// maxRetryDelay. maxRetries counts retries after the first attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, maxRetryDelay)
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
