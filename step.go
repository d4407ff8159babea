package saga

import (
	"context"
	"time"
)

// StepFunc is the shape of both a step's action and its compensation. The
// context carries cancellation; c is the caller-owned saga context, shared
// by every step and mutated in place.
type StepFunc[C any] func(ctx context.Context, c C) error

// StepDefinition describes one step of a saga. Definitions are frozen at
// Build time; Steps() hands out copies for introspection.
//
// Name is a reporting label used by hooks, the result record, the journal
// and the trace. Execution itself is positional, so duplicate names are
// tolerated.
type StepDefinition[C any] struct {
	Name         string
	Action       StepFunc[C]
	Compensation StepFunc[C]

	// Retry and CompensationRetry bound reattempts of the action and the
	// compensation respectively. Nil means a single attempt.
	Retry             *RetryPolicy
	CompensationRetry *RetryPolicy

	// ActionTimeout and CompensationTimeout are per-invocation deadlines.
	// Zero means none.
	ActionTimeout       time.Duration
	CompensationTimeout time.Duration

	// Breaker, when set, wraps every forward attempt of the action.
	// Compensations bypass it.
	Breaker Breaker
}

type stepSettings struct {
	retry               *RetryPolicy
	compensationRetry   *RetryPolicy
	actionTimeout       time.Duration
	compensationTimeout time.Duration
	breaker             Breaker
}

// StepOption tunes a single step added through Builder.Step.
type StepOption func(*stepSettings)

// WithRetry sets the retry policy for the step's action.
func WithRetry(p RetryPolicy) StepOption {
	return func(s *stepSettings) {
		s.retry = &p
	}
}

// WithCompensationRetry sets the retry policy for the step's compensation.
func WithCompensationRetry(p RetryPolicy) StepOption {
	return func(s *stepSettings) {
		s.compensationRetry = &p
	}
}

// WithActionTimeout sets the deadline for each attempt of the step's action.
func WithActionTimeout(d time.Duration) StepOption {
	return func(s *stepSettings) {
		s.actionTimeout = d
	}
}

// WithCompensationTimeout sets the deadline for each attempt of the step's
// compensation.
func WithCompensationTimeout(d time.Duration) StepOption {
	return func(s *stepSettings) {
		s.compensationTimeout = d
	}
}

// WithBreaker routes the step's action attempts through a circuit breaker.
func WithBreaker(b Breaker) StepOption {
	return func(s *stepSettings) {
		s.breaker = b
	}
}
