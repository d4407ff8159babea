package saga

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithTimeoutPassesResultsThrough(t *testing.T) {
	sentinel := errors.New("op error")
	err := runWithTimeout(context.Background(), "step", 100*time.Millisecond, func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	err = runWithTimeout(context.Background(), "step", 100*time.Millisecond, func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestRunWithTimeoutExpires(t *testing.T) {
	var sawCancel atomic.Bool

	start := time.Now()
	err := runWithTimeout(context.Background(), "slowStep", 50*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "slowStep", te.Step)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Less(t, time.Since(start), time.Second, "the caller should not wait for the slow op")

	assert.Eventually(t, sawCancel.Load, time.Second, 10*time.Millisecond,
		"the losing op should observe cooperative cancellation")
}

func TestRunWithTimeoutPreCancelledSkipsOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoked := false
	err := runWithTimeout(ctx, "step", time.Second, func(context.Context) error {
		invoked = true
		return nil
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, invoked, "op must not run when the context is already cancelled")
}

func TestRunWithTimeoutExternalCancelWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := runWithTimeout(ctx, "step", 5*time.Second, func(context.Context) error {
		// Deliberately ignores cancellation; the caller must not wait on it.
		time.Sleep(300 * time.Millisecond)
		return nil
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Less(t, time.Since(start), 250*time.Millisecond,
		"external cancellation should return before the op finishes")
}

func TestRunWithTimeoutNoDeadlineRunsSynchronously(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "payload")

	var got context.Context
	err := runWithTimeout(ctx, "step", 0, func(opCtx context.Context) error {
		got = opCtx
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, ctx, got, "without a deadline the caller's context passes through unchanged")
}
