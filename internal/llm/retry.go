package llm

import (
	"context"
	"time"

	"github.com/sevigo/diff-scout/internal/core"
)

// RetryWithBackoff runs fn up to maxRetries+1 times. Only transient failures
// are retried; configuration and permanent upstream errors return
// immediately. The wait before the first retry is base (one second when base
// is zero) and doubles per attempt.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	if base <= 0 {
		base = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !core.IsTransient(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * base
			select {
			case <-ctx.Done():
				// Keep the classified failure; the context error alone
				// carries no review error kind.
				return lastErr
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
