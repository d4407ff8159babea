package saga

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker admits or rejects execution attempts. It matches the Execute
// method of *gobreaker.CircuitBreaker[struct{}], so a gobreaker instance
// can be passed to WithBreaker directly.
type Breaker interface {
	Execute(req func() (struct{}, error)) (struct{}, error)
}

// NewBreaker returns a circuit breaker that opens after maxFailures
// consecutive failures and stays open for openFor before probing again.
// Step attempts rejected while open fail with gobreaker.ErrOpenState, which
// the step's retry policy sees like any other error.
func NewBreaker(name string, maxFailures int, openFor time.Duration) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    name,
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= maxFailures
		},
	})
}

// breakerOp wraps op so each invocation is admitted by b first.
func breakerOp(b Breaker, op func() error) error {
	_, err := b.Execute(func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
