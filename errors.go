package saga

import (
	"fmt"
	"time"
)

// TimeoutError reports that a step's action or compensation ran past its
// configured deadline. The operation itself is signalled to stop via its
// context but is never forcibly terminated.
type TimeoutError struct {
	Step    string
	Timeout time.Duration
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %q timed out after %s", e.Step, e.Timeout)
}

func newTimeoutError(step string, timeout time.Duration) error {
	return &TimeoutError{Step: step, Timeout: timeout}
}

// AbortError reports that execution stopped because the caller's context was
// cancelled. It wraps the context's error, so
// errors.Is(err, context.Canceled) keeps working through it.
type AbortError struct {
	Cause error
}

// Error implements the error interface for AbortError.
func (e *AbortError) Error() string {
	if e.Cause == nil {
		return "saga aborted"
	}
	return fmt.Sprintf("saga aborted: %v", e.Cause)
}

// Unwrap returns the underlying context error.
func (e *AbortError) Unwrap() error {
	return e.Cause
}

func newAbortError(cause error) error {
	return &AbortError{Cause: cause}
}

// CompensationError reports that a step's compensation failed after its
// retry policy was exhausted. It carries the step name and the underlying
// cause.
type CompensationError struct {
	Step  string
	Cause error
}

// Error implements the error interface for CompensationError.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation for step %q failed: %v", e.Step, e.Cause)
}

// Unwrap returns the error produced by the compensation itself.
func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// HookError reports that a lifecycle hook returned an error while the saga
// was configured with WithFailOnHookError. Execute returns it directly, with
// a nil result.
type HookError struct {
	Hook string
	Step string
	Err  error
}

// Error implements the error interface for HookError.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook for step %q: %v", e.Hook, e.Step, e.Err)
}

// Unwrap returns the error returned by the hook.
func (e *HookError) Unwrap() error {
	return e.Err
}
