// Package saga orchestrates ordered, reversible steps.
//
// A saga is a sequence of steps run strictly in order over a shared,
// caller-owned context object. When a step fails beyond recovery, the
// steps that already completed are compensated in exact reverse of
// completion order, returning the system to a coherent state. For more on
// distributed sagas, see this 2017 JOTB talk by Caitie McCaffrey:
// https://www.youtube.com/watch?v=0UTOLRTwOX0
//
// Using the package:
//
//  1. Declare steps. Each step pairs an action with an optional
//     compensation, both StepFunc closures over your context type. Tune a
//     step with WithRetry, WithActionTimeout, WithCompensationRetry or
//     WithBreaker.
//  2. Assemble. New creates a Builder; chain Step calls, then Build.
//     Steps shared between sagas can live in a Registry and be pulled in
//     with StepFrom.
//  3. Execute. Call Execute with a context.Context and your context
//     object. Every ordinary outcome lands in the Result: terminal state,
//     failed step, compensated steps and the per-step Trace.
//  4. Observe. WithLogger, WithMetrics and WithJournal attach structured
//     logging, Prometheus collectors and an append-only event record to
//     executions.
//
// Runnable programs live under examples.
package saga
