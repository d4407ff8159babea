package saga

import "time"

// Result is the outcome record of a single Execute call. It is produced
// exactly once per execution and not mutated afterwards.
//
// Execute never reports ordinary saga failure through its error return;
// callers branch on Success (or State) and use the step lists to audit
// exactly which side effects were rolled back and which were left behind.
type Result[C any] struct {
	// Success is true only if every step's action completed without the
	// engine ever starting to compensate.
	Success bool

	// State is the terminal engine state: StateSucceeded, StateFailed or
	// StateAborted.
	State SagaState

	// Context is the caller's context object, returned for convenience.
	// It is the same object that was passed in, mutated in place.
	Context C

	// Error is the failure cause on the forward path: the failed step's
	// error after retries, or an *AbortError when cancellation stopped
	// forward progress.
	Error error

	// FailedStep names the step whose action could not complete. Empty
	// when cancellation was observed between steps.
	FailedStep string

	// CompensationFailedStep names the step whose compensation failure
	// stopped the unwind. Only set when unwinding stops early.
	CompensationFailedStep string

	// CompletedSteps lists the steps whose actions completed, in
	// completion order.
	CompletedSteps []string

	// CompensatedSteps lists the steps whose compensations ran and
	// succeeded, in unwind order. Steps without a compensation never
	// appear here.
	CompensatedSteps []string

	// FailedCompensations lists the steps whose compensations failed, in
	// the order the failures occurred.
	FailedCompensations []string

	// CompensationErrors carries the wrapped cause for every failed
	// compensation, in the same order as FailedCompensations.
	CompensationErrors []*CompensationError

	// ExecutionID identifies this execution in logs and journal events.
	ExecutionID ExecutionID

	// Duration is the wall-clock time of the whole execution.
	Duration time.Duration

	// Trace is the ordered per-step audit trail.
	Trace *Trace
}
