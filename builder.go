package saga

import (
	"context"
	"errors"
	"fmt"
)

// Builder assembles a Saga. Step and StepFrom return the receiver so a
// declaration reads as a chain; Build validates the whole definition at
// once and reports every problem it finds.
type Builder[C any] struct {
	opts  options
	steps []StepDefinition[C]
	errs  []error
}

// New creates a Builder configured by the given saga-level options.
func New[C any](opts ...Option) *Builder[C] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder[C]{opts: o}
}

// Step appends a step with the given name, action and compensation. A nil
// compensation marks the step as not reversible: it is skipped during
// unwinding and never appears among the compensated steps. Step options
// tune retries, timeouts and the circuit breaker for this step only.
func (b *Builder[C]) Step(name string, action, compensation StepFunc[C], opts ...StepOption) *Builder[C] {
	var st stepSettings
	for _, opt := range opts {
		opt(&st)
	}
	b.steps = append(b.steps, StepDefinition[C]{
		Name:                name,
		Action:              action,
		Compensation:        compensation,
		Retry:               st.retry,
		CompensationRetry:   st.compensationRetry,
		ActionTimeout:       st.actionTimeout,
		CompensationTimeout: st.compensationTimeout,
		Breaker:             st.breaker,
	})
	return b
}

// StepFrom appends steps previously registered in reg, by name, in the
// given order. Unknown names surface as Build errors rather than panics,
// so a whole pipeline assembled from a registry fails in one place.
func (b *Builder[C]) StepFrom(reg *Registry[C], names ...string) *Builder[C] {
	for _, name := range names {
		def, ok := reg.Get(name)
		if !ok {
			b.errs = append(b.errs, fmt.Errorf("step %q not registered", name))
			continue
		}
		b.steps = append(b.steps, def)
	}
	return b
}

// Build validates the declaration and freezes it into an immutable Saga.
// All problems are reported together via errors.Join.
func (b *Builder[C]) Build() (*Saga[C], error) {
	errs := append([]error(nil), b.errs...)
	for i := range b.steps {
		def := &b.steps[i]
		if def.Action == nil {
			errs = append(errs, fmt.Errorf("step %d (%q) has no action", i, def.Name))
		}
		if def.Retry != nil {
			if err := def.Retry.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("step %d (%q): %w", i, def.Name, err))
			}
		}
		if def.CompensationRetry != nil {
			if err := def.CompensationRetry.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("step %d (%q) compensation: %w", i, def.Name, err))
			}
		}
		if def.ActionTimeout < 0 {
			errs = append(errs, fmt.Errorf("step %d (%q): negative action timeout %s", i, def.Name, def.ActionTimeout))
		}
		if def.CompensationTimeout < 0 {
			errs = append(errs, fmt.Errorf("step %d (%q): negative compensation timeout %s", i, def.Name, def.CompensationTimeout))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	steps := make([]StepDefinition[C], len(b.steps))
	copy(steps, b.steps)
	return &Saga[C]{steps: steps, opts: b.opts}, nil
}

// Execute builds the saga and runs it once, a shorthand for Build followed
// by Execute on the result.
func (b *Builder[C]) Execute(ctx context.Context, c C) (*Result[C], error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, c)
}
