package saga

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffDoubling(t *testing.T) {
	// Zero jitter makes the delays deterministic: min*2^(n-1), capped at max.
	b := exponentialBackoff(100*time.Millisecond, time.Second, func() float64 { return 0 })

	assert.Equal(t, 100*time.Millisecond, b(1))
	assert.Equal(t, 200*time.Millisecond, b(2))
	assert.Equal(t, 400*time.Millisecond, b(3))
	assert.Equal(t, 800*time.Millisecond, b(4))
	assert.Equal(t, time.Second, b(5), "delay should clamp at max")
	assert.Equal(t, time.Second, b(6), "delay should stay clamped")
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	b := ExponentialBackoff(50*time.Millisecond, 400*time.Millisecond)

	for attempt := 1; attempt <= 8; attempt++ {
		base := 50 * time.Millisecond << (attempt - 1)
		if base > 400*time.Millisecond {
			base = 400 * time.Millisecond
		}
		for i := 0; i < 200; i++ {
			d := b(attempt)
			assert.GreaterOrEqual(t, d, base, "attempt %d: delay below the clamped base", attempt)
			assert.Less(t, d, 2*base, "attempt %d: delay at or above twice the clamped base", attempt)
		}
	}
}

func TestExponentialBackoffAttemptFloor(t *testing.T) {
	b := exponentialBackoff(100*time.Millisecond, time.Second, func() float64 { return 0 })

	// Attempt numbers below 1 behave like the first attempt.
	assert.Equal(t, b(1), b(0))
	assert.Equal(t, b(1), b(-5))
}

func TestExponentialBackoffMinAboveMax(t *testing.T) {
	b := exponentialBackoff(2*time.Second, time.Second, func() float64 { return 0 })

	assert.Equal(t, time.Second, b(1), "a min above max should collapse to max")
	assert.Equal(t, time.Second, b(7))
}

func TestExponentialBackoffHugeAttemptDoesNotOverflow(t *testing.T) {
	b := exponentialBackoff(time.Hour, 24*time.Hour, func() float64 { return 0 })

	assert.Equal(t, 24*time.Hour, b(200))
	assert.Equal(t, 24*time.Hour, b(10000))
}

func TestConstantBackoff(t *testing.T) {
	b := ConstantBackoff(250 * time.Millisecond)

	for _, attempt := range []int{1, 2, 10} {
		assert.Equal(t, 250*time.Millisecond, b(attempt), "attempt %d", attempt)
	}
}
