package resilience

import (
	"context"
	"errors"
	"time"
)

// RetryOnce runs fn and, when fn fails with an error matching retryable,
// waits for delay and runs it exactly one more time. It never retries on
// other errors, and never retries more than once: it exists for calls that
// are idempotent by key (such as escrow lock deduplicated by task ID), where
// a single retry after an ambiguous network failure is safe but a retry loop
// would hide a real outage from the caller.
func RetryOnce(ctx context.Context, retryable error, delay time.Duration, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, retryable) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	return fn()
}
