package saga

import (
	"context"
	"time"
)

// runWithTimeout executes op, racing it against the deadline d when one is
// set. Whichever side settles first wins: if the timer fires, the op's
// context is cancelled and a *TimeoutError is returned; the op itself is
// expected to notice the cancellation and stop on its own. If the caller's
// context is already cancelled, op is not invoked at all and an *AbortError
// is returned.
//
// d <= 0 means no deadline; op then runs synchronously on the calling
// goroutine.
func runWithTimeout(ctx context.Context, step string, d time.Duration, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return newAbortError(err)
	}

	if d <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		cancel()
		return newTimeoutError(step, d)
	case <-ctx.Done():
		cancel()
		return newAbortError(ctx.Err())
	}
}
