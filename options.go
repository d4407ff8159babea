package saga

import (
	"context"

	"go.uber.org/zap"
)

// StepHook observes a step outcome. Returning an error is normally logged
// and swallowed; with WithFailOnHookError it aborts the execution instead.
type StepHook func(ctx context.Context, step string) error

// StepErrorHook observes a step outcome together with the error that caused
// it.
type StepErrorHook func(ctx context.Context, step string, err error) error

type options struct {
	name                        string
	onStepComplete              StepHook
	onStepFail                  StepErrorHook
	onCompensate                StepHook
	onCompensationError         StepErrorHook
	continueOnCompensationError bool
	failOnHookError             bool
	logger                      *zap.Logger
	metrics                     Collector
	journal                     EventSink
}

func defaultOptions() options {
	return options{
		name:    "saga",
		logger:  zap.NewNop(),
		metrics: NopCollector{},
	}
}

// Option configures a saga at construction time.
type Option func(*options)

// WithName sets the saga name used in logs, metrics, journal events and the
// exported graph.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithOnStepComplete registers a hook fired once per successfully completed
// step, in completion order.
func WithOnStepComplete(h StepHook) Option {
	return func(o *options) {
		o.onStepComplete = h
	}
}

// WithOnStepFail registers a hook fired when a step's action fails after
// its retries are exhausted.
func WithOnStepFail(h StepErrorHook) Option {
	return func(o *options) {
		o.onStepFail = h
	}
}

// WithOnCompensate registers a hook fired once per successfully compensated
// step, in unwind order.
func WithOnCompensate(h StepHook) Option {
	return func(o *options) {
		o.onCompensate = h
	}
}

// WithOnCompensationError registers a hook fired when a step's compensation
// fails. The error passed in is the *CompensationError wrapping the cause.
func WithOnCompensationError(h StepErrorHook) Option {
	return func(o *options) {
		o.onCompensationError = h
	}
}

// WithContinueOnCompensationError keeps unwinding earlier steps after a
// compensation fails, instead of stopping at the first failure.
func WithContinueOnCompensationError() Option {
	return func(o *options) {
		o.continueOnCompensationError = true
	}
}

// WithFailOnHookError makes a hook error abort the execution: Execute
// returns the hook's error and a nil result. The default is to log the
// error and continue.
func WithFailOnHookError() Option {
	return func(o *options) {
		o.failOnHookError = true
	}
}

// WithLogger sets the logger for engine-level diagnostics. The default is a
// no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector executions report to.
func WithMetrics(c Collector) Option {
	return func(o *options) {
		if c != nil {
			o.metrics = c
		}
	}
}

// WithJournal forwards every execution event to sink. Sink errors are
// logged and never fail the saga.
func WithJournal(sink EventSink) Option {
	return func(o *options) {
		o.journal = sink
	}
}
