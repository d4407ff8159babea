package saga

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okvist/saga/pipeline"
)

// ExecutionID uniquely identifies a single Execute call.
type ExecutionID struct {
	UUID uuid.UUID
}

// NewExecutionID creates a fresh ExecutionID.
func NewExecutionID() ExecutionID {
	return ExecutionID{UUID: uuid.New()}
}

// String returns the string representation of the ExecutionID.
func (id ExecutionID) String() string {
	return id.UUID.String()
}

// MarshalJSON encodes the ExecutionID as its canonical string form.
func (id ExecutionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.UUID.String() + `"`), nil
}

// UnmarshalJSON decodes an ExecutionID from its canonical string form.
func (id *ExecutionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	id.UUID = u
	return nil
}

// SagaState is the engine state of an execution.
type SagaState int

const (
	StatePending SagaState = iota
	StateRunning
	StateCompensating
	StateSucceeded
	StateFailed
	StateAborted
)

// String returns the string representation of the SagaState.
func (s SagaState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompensating:
		return "compensating"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state is final.
func (s SagaState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateAborted:
		return true
	}
	return false
}

// Saga is an immutable, ordered list of reversible steps. Build one with a
// Builder, then Execute it as many times as needed: the Saga itself holds
// no per-execution state, so concurrent Execute calls with different
// context objects are safe and independent. Calling Execute concurrently
// with the same context object is undefined behavior; the engine never
// clones, freezes or locks the caller's context.
type Saga[C any] struct {
	steps []StepDefinition[C]
	opts  options
}

// Name returns the saga's name.
func (s *Saga[C]) Name() string {
	return s.opts.name
}

// Steps returns a copy of the step definitions, in declaration order. The
// retry policies are copied too, so mutating the returned definitions
// cannot reach back into the saga.
func (s *Saga[C]) Steps() []StepDefinition[C] {
	out := make([]StepDefinition[C], len(s.steps))
	copy(out, s.steps)
	for i := range out {
		if p := out[i].Retry; p != nil {
			cp := *p
			out[i].Retry = &cp
		}
		if p := out[i].CompensationRetry; p != nil {
			cp := *p
			out[i].CompensationRetry = &cp
		}
	}
	return out
}

// Graph returns the step chain as a pipeline graph, for DOT export.
func (s *Saga[C]) Graph() *pipeline.Graph {
	steps := make([]pipeline.Step, len(s.steps))
	for i, def := range s.steps {
		steps[i] = pipeline.Step{Name: def.Name, Compensable: def.Compensation != nil}
	}
	return pipeline.New(s.opts.name, steps)
}

// Execute runs the saga over the caller-owned context object c, mutating
// it in place. Steps run strictly sequentially, in declaration order. On
// an unrecoverable step failure, the completed steps are compensated in
// exact reverse of completion order.
//
// The returned Result encodes every ordinary outcome, including failures
// and aborts; Execute's error return is reserved for hook errors under
// WithFailOnHookError (the result is then nil). Cancellation of ctx is
// polled before each step and before each retry wait, and ctx is passed
// into every action and compensation for cooperative checks.
func (s *Saga[C]) Execute(ctx context.Context, c C) (*Result[C], error) {
	e := &execution[C]{
		saga:      s,
		id:        NewExecutionID(),
		c:         c,
		trace:     newTrace(),
		startedAt: time.Now(),
	}
	e.log = s.opts.logger.With(
		zap.String("saga", s.opts.name),
		zap.Stringer("execution_id", e.id),
	)
	return e.run(ctx)
}

// execution carries the per-run mutable state. Everything here is local to
// one Execute call; nothing is written back to the Saga.
type execution[C any] struct {
	saga      *Saga[C]
	id        ExecutionID
	c         C
	trace     *Trace
	log       *zap.Logger
	startedAt time.Time

	completed      []int
	completedNames []string
	compensated    []string
	failedComps    []string
	compErrs       []*CompensationError
	failedStep     string
	compFailedStep string
	cause          error
}

func (e *execution[C]) run(ctx context.Context) (*Result[C], error) {
	opts := &e.saga.opts
	e.event(Event{StepIndex: -1, Type: EventSagaStarted})
	opts.metrics.SagaStarted(opts.name)
	e.log.Info("saga started", zap.Int("steps", len(e.saga.steps)))

	compensating := false
	for i := range e.saga.steps {
		def := &e.saga.steps[i]

		if err := ctx.Err(); err != nil {
			// Cancellation between steps. The current step never ran, so
			// it is not recorded as the failed step and OnStepFail does
			// not fire.
			e.cause = newAbortError(err)
			e.log.Warn("cancellation observed, unwinding",
				zap.Int("next_step", i),
				zap.String("name", def.Name))
			compensating = true
			break
		}

		stepErr := e.runStep(ctx, i, def)
		if stepErr == nil {
			if hookErr := e.fireStepHook(ctx, "on_step_complete", def.Name, opts.onStepComplete); hookErr != nil {
				return nil, hookErr
			}
			continue
		}

		if hookErr := e.fireStepErrorHook(ctx, "on_step_fail", def.Name, opts.onStepFail, stepErr); hookErr != nil {
			return nil, hookErr
		}
		e.cause = stepErr
		e.failedStep = def.Name
		compensating = true
		break
	}

	if compensating {
		if hookErr := e.unwind(ctx); hookErr != nil {
			return nil, hookErr
		}
	}

	return e.finish(compensating), nil
}

// runStep executes one step's action under its breaker, timeout and retry
// settings, recording the outcome in the trace, journal and metrics. Hooks
// are the caller's business.
func (e *execution[C]) runStep(ctx context.Context, i int, def *StepDefinition[C]) error {
	opts := &e.saga.opts
	rec := &StepRecord{Index: i, Name: def.Name, Status: StepRunning, StartedAt: time.Now()}
	e.trace.set(rec)
	e.event(Event{StepIndex: i, Step: def.Name, Type: EventStepStarted})
	e.log.Debug("executing step", zap.Int("step", i), zap.String("name", def.Name))

	attempts := 0
	invoke := func(opCtx context.Context) error {
		return runWithTimeout(opCtx, def.Name, def.ActionTimeout, func(actionCtx context.Context) error {
			return def.Action(actionCtx, e.c)
		})
	}
	op := func(opCtx context.Context, attempt int) error {
		attempts = attempt
		if def.Breaker != nil {
			return breakerOp(def.Breaker, func() error { return invoke(opCtx) })
		}
		return invoke(opCtx)
	}
	onRetry := func(next int, err error, delay time.Duration) {
		opts.metrics.StepRetried(opts.name, def.Name, next)
		e.event(Event{StepIndex: i, Step: def.Name, Type: EventStepRetrying, Attempt: next, Err: err.Error()})
		e.log.Warn("step failed, retrying",
			zap.String("name", def.Name),
			zap.Int("attempt", next),
			zap.Duration("backoff", delay),
			zap.Error(err))
	}

	err := runWithRetry(ctx, def.Retry, op, onRetry)
	rec.Attempts = attempts
	rec.FinishedAt = time.Now()
	duration := rec.FinishedAt.Sub(rec.StartedAt)

	if err != nil {
		rec.Status = StepFailed
		rec.Err = err
		opts.metrics.StepExecuted(opts.name, def.Name, false, attempts, duration)
		e.event(Event{StepIndex: i, Step: def.Name, Type: EventStepFailed, Attempt: attempts, Err: err.Error()})
		e.log.Error("step failed",
			zap.String("name", def.Name),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return err
	}

	rec.Status = StepCompleted
	e.completed = append(e.completed, i)
	e.completedNames = append(e.completedNames, def.Name)
	opts.metrics.StepExecuted(opts.name, def.Name, true, attempts, duration)
	e.event(Event{StepIndex: i, Step: def.Name, Type: EventStepSucceeded, Attempt: attempts})
	e.log.Debug("step completed", zap.String("name", def.Name), zap.Int("attempts", attempts))
	return nil
}

// unwind compensates completed steps in exact reverse of completion order.
// Steps without a compensation are skipped without reordering the rest. A
// non-nil return is a hook error that must propagate out of Execute.
func (e *execution[C]) unwind(ctx context.Context) error {
	opts := &e.saga.opts
	e.log.Info("compensating", zap.Int("completed_steps", len(e.completed)))

	for k := len(e.completed) - 1; k >= 0; k-- {
		i := e.completed[k]
		def := &e.saga.steps[i]

		if def.Compensation == nil {
			e.log.Debug("no compensation, skipping", zap.String("name", def.Name))
			continue
		}

		compErr := e.runCompensation(ctx, i, def)
		if compErr == nil {
			e.compensated = append(e.compensated, def.Name)
			if hookErr := e.fireStepHook(ctx, "on_compensate", def.Name, opts.onCompensate); hookErr != nil {
				return hookErr
			}
			continue
		}

		cerr := &CompensationError{Step: def.Name, Cause: compErr}
		e.failedComps = append(e.failedComps, def.Name)
		e.compErrs = append(e.compErrs, cerr)
		if hookErr := e.fireStepErrorHook(ctx, "on_compensation_error", def.Name, opts.onCompensationError, cerr); hookErr != nil {
			return hookErr
		}

		if !opts.continueOnCompensationError {
			e.compFailedStep = def.Name
			e.log.Error("compensation failed, stopping unwind",
				zap.String("name", def.Name),
				zap.Error(compErr))
			return nil
		}
		e.log.Warn("compensation failed, continuing unwind",
			zap.String("name", def.Name),
			zap.Error(compErr))
	}
	return nil
}

// runCompensation executes one step's compensation under its timeout and
// retry settings. Compensations never go through the step's breaker.
func (e *execution[C]) runCompensation(ctx context.Context, i int, def *StepDefinition[C]) error {
	opts := &e.saga.opts
	rec, ok := e.trace.Record(i)
	if !ok {
		// Only completed steps are unwound, and completing a step always
		// records it.
		rec = &StepRecord{Index: i, Name: def.Name}
		e.trace.set(rec)
	}
	rec.Status = StepCompensating
	e.event(Event{StepIndex: i, Step: def.Name, Type: EventCompensationStarted})
	e.log.Debug("compensating step", zap.Int("step", i), zap.String("name", def.Name))

	attempts := 0
	started := time.Now()
	op := func(opCtx context.Context, attempt int) error {
		attempts = attempt
		return runWithTimeout(opCtx, def.Name, def.CompensationTimeout, func(compCtx context.Context) error {
			return def.Compensation(compCtx, e.c)
		})
	}
	onRetry := func(next int, err error, delay time.Duration) {
		e.event(Event{StepIndex: i, Step: def.Name, Type: EventCompensationRetrying, Attempt: next, Err: err.Error()})
		e.log.Warn("compensation failed, retrying",
			zap.String("name", def.Name),
			zap.Int("attempt", next),
			zap.Duration("backoff", delay),
			zap.Error(err))
	}

	err := runWithRetry(ctx, def.CompensationRetry, op, onRetry)
	rec.CompAttempts = attempts
	duration := time.Since(started)

	if err != nil {
		rec.Status = StepCompensationFailed
		rec.CompErr = err
		opts.metrics.CompensationExecuted(opts.name, def.Name, false, duration)
		e.event(Event{StepIndex: i, Step: def.Name, Type: EventCompensationFailed, Attempt: attempts, Err: err.Error()})
		return err
	}

	rec.Status = StepCompensated
	opts.metrics.CompensationExecuted(opts.name, def.Name, true, duration)
	e.event(Event{StepIndex: i, Step: def.Name, Type: EventCompensationSucceeded, Attempt: attempts})
	e.log.Debug("step compensated", zap.String("name", def.Name))
	return nil
}

func (e *execution[C]) finish(compensated bool) *Result[C] {
	state := StateSucceeded
	if compensated {
		var abort *AbortError
		if errors.As(e.cause, &abort) {
			state = StateAborted
		} else {
			state = StateFailed
		}
	}

	duration := time.Since(e.startedAt)
	var evType EventType
	switch state {
	case StateSucceeded:
		evType = EventSagaSucceeded
	case StateAborted:
		evType = EventSagaAborted
	default:
		evType = EventSagaFailed
	}
	ev := Event{StepIndex: -1, Type: evType}
	if e.cause != nil {
		ev.Err = e.cause.Error()
	}
	e.event(ev)
	e.saga.opts.metrics.SagaFinished(e.saga.opts.name, state, duration)

	if state == StateSucceeded {
		e.log.Info("saga succeeded", zap.Duration("duration", duration))
	} else {
		e.log.Info("saga finished",
			zap.Stringer("state", state),
			zap.Duration("duration", duration),
			zap.Int("compensated", len(e.compensated)),
			zap.Int("failed_compensations", len(e.failedComps)),
			zap.Error(e.cause))
	}

	return &Result[C]{
		Success:                state == StateSucceeded,
		State:                  state,
		Context:                e.c,
		Error:                  e.cause,
		FailedStep:             e.failedStep,
		CompensationFailedStep: e.compFailedStep,
		CompletedSteps:         e.completedNames,
		CompensatedSteps:       e.compensated,
		FailedCompensations:    e.failedComps,
		CompensationErrors:     e.compErrs,
		ExecutionID:            e.id,
		Duration:               duration,
		Trace:                  e.trace,
	}
}

// event forwards one journal event to the configured sink, stamping the
// execution identity.
func (e *execution[C]) event(ev Event) {
	sink := e.saga.opts.journal
	if sink == nil {
		return
	}
	ev.ExecutionID = e.id
	ev.Saga = e.saga.opts.name
	ev.At = time.Now()
	if err := sink.Record(ev); err != nil {
		e.log.Warn("journal record failed", zap.Error(err))
	}
}

func (e *execution[C]) fireStepHook(ctx context.Context, hook, step string, h StepHook) error {
	if h == nil {
		return nil
	}
	err := h(ctx, step)
	if err == nil {
		return nil
	}
	if e.saga.opts.failOnHookError {
		return &HookError{Hook: hook, Step: step, Err: err}
	}
	e.log.Warn("hook error swallowed",
		zap.String("hook", hook),
		zap.String("step", step),
		zap.Error(err))
	return nil
}

func (e *execution[C]) fireStepErrorHook(ctx context.Context, hook, step string, h StepErrorHook, cause error) error {
	if h == nil {
		return nil
	}
	err := h(ctx, step, cause)
	if err == nil {
		return nil
	}
	if e.saga.opts.failOnHookError {
		return &HookError{Hook: hook, Step: step, Err: err}
	}
	e.log.Warn("hook error swallowed",
		zap.String("hook", hook),
		zap.String("step", step),
		zap.Error(err))
	return nil
}
