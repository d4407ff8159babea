package saga

import (
	"math/rand/v2"
	"time"
)

// BackoffFunc computes the delay to wait before the next attempt. The
// attempt number of the attempt that just failed is passed in, starting at
// 1. Implementations must return a non-negative duration.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff returns a backoff strategy that doubles the delay each
// attempt, clamped at max, with full positive jitter: the delay for attempt
// n is uniformly distributed in [clamped, 2*clamped) where
// clamped = min(min*2^(n-1), max).
//
// The jitter spreads out retries from many saga instances hammering the
// same dependency, so their retry storms don't synchronize.
func ExponentialBackoff(min, max time.Duration) BackoffFunc {
	return exponentialBackoff(min, max, rand.Float64)
}

// exponentialBackoff is the injectable-jitter form used by tests.
func exponentialBackoff(min, max time.Duration, jitter func() float64) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}

		// Double up to the cap. Stepwise doubling instead of a shift so a
		// large attempt number cannot overflow into a negative delay.
		clamped := min
		for i := 1; i < attempt && clamped < max; i++ {
			clamped *= 2
		}
		if clamped > max || clamped < 0 {
			clamped = max
		}

		delay := clamped + time.Duration(jitter()*float64(clamped))
		if delay < 0 {
			return 0
		}
		return delay
	}
}

// ConstantBackoff returns a backoff strategy with a fixed delay between
// every attempt.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return d
	}
}
