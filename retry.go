package saga

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how a failing operation is reattempted.
//
// A nil Backoff means attempts are retried immediately with no delay. A nil
// RetryOn means every error is considered retryable. Exhausting MaxAttempts
// propagates the last error unchanged.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be at least 1.
	MaxAttempts int

	// Backoff computes the delay before the next attempt.
	Backoff BackoffFunc

	// RetryOn decides whether an error is worth retrying. Returning false
	// propagates the error immediately.
	RetryOn func(error) bool
}

// Validate reports whether the policy is well formed.
func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	return nil
}

// runWithRetry executes op under the policy. A nil policy means a single
// attempt. The context is polled before every retry wait; cancellation
// observed there, or during the wait itself, returns an *AbortError
// immediately instead of running further attempts.
//
// onRetry, if non-nil, is invoked after a retryable failure and before the
// backoff wait, with the upcoming attempt number, the error that was just
// observed, and the chosen delay.
func runWithRetry(
	ctx context.Context,
	p *RetryPolicy,
	op func(ctx context.Context, attempt int) error,
	onRetry func(next int, err error, delay time.Duration),
) error {
	maxAttempts := 1
	if p != nil {
		maxAttempts = p.MaxAttempts
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt >= maxAttempts {
			return lastErr
		}
		if p.RetryOn != nil && !p.RetryOn(lastErr) {
			return lastErr
		}

		if err := ctx.Err(); err != nil {
			return newAbortError(err)
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if onRetry != nil {
			onRetry(attempt+1, lastErr, delay)
		}
		if delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}
	}
}

// sleepCtx waits for d unless the context is cancelled first, in which case
// it returns an *AbortError.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return newAbortError(ctx.Err())
	case <-timer.C:
		return nil
	}
}
