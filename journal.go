package saga

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// EventType identifies what happened at a point of an execution.
type EventType int

const (
	EventSagaStarted EventType = iota
	EventStepStarted
	EventStepRetrying
	EventStepSucceeded
	EventStepFailed
	EventCompensationStarted
	EventCompensationRetrying
	EventCompensationSucceeded
	EventCompensationFailed
	EventSagaSucceeded
	EventSagaFailed
	EventSagaAborted
)

// String returns the snake_case name of the event type.
func (t EventType) String() string {
	switch t {
	case EventSagaStarted:
		return "saga_started"
	case EventStepStarted:
		return "step_started"
	case EventStepRetrying:
		return "step_retrying"
	case EventStepSucceeded:
		return "step_succeeded"
	case EventStepFailed:
		return "step_failed"
	case EventCompensationStarted:
		return "compensation_started"
	case EventCompensationRetrying:
		return "compensation_retrying"
	case EventCompensationSucceeded:
		return "compensation_succeeded"
	case EventCompensationFailed:
		return "compensation_failed"
	case EventSagaSucceeded:
		return "saga_succeeded"
	case EventSagaFailed:
		return "saga_failed"
	case EventSagaAborted:
		return "saga_aborted"
	default:
		return fmt.Sprintf("unknown EventType: %d", int(t))
	}
}

// MarshalJSON encodes the event type as its snake_case name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Event is one entry of an execution's journal. Saga-level events carry a
// StepIndex of -1.
type Event struct {
	ExecutionID ExecutionID `json:"execution_id"`
	Saga        string      `json:"saga"`
	StepIndex   int         `json:"step_index"`
	Step        string      `json:"step,omitempty"`
	Type        EventType   `json:"type"`
	Attempt     int         `json:"attempt,omitempty"`
	Err         string      `json:"error,omitempty"`
	At          time.Time   `json:"at"`
}

// String implements fmt.Stringer for Event.
func (e Event) String() string {
	if e.StepIndex < 0 {
		return fmt.Sprintf("saga %s", e.Type)
	}
	return fmt.Sprintf("S%03d %s %s", e.StepIndex, e.Type, e.Step)
}

// EventSink receives every event of an execution, in order. Sink errors are
// logged by the engine and never fail the saga.
type EventSink interface {
	Record(e Event) error
}

// stepJournalStatus is the per-step status the journal tracks to validate
// event ordering.
type stepJournalStatus int

const (
	journalNeverStarted stepJournalStatus = iota
	journalStarted
	journalSucceeded
	journalFailed
	journalCompStarted
	journalCompSucceeded
	journalCompFailed
)

// nextStatus returns the step status after recording the given event.
func (s stepJournalStatus) nextStatus(t EventType) (stepJournalStatus, error) {
	switch s {
	case journalNeverStarted:
		if t == EventStepStarted {
			return journalStarted, nil
		}
	case journalStarted:
		switch t {
		case EventStepRetrying:
			return journalStarted, nil
		case EventStepSucceeded:
			return journalSucceeded, nil
		case EventStepFailed:
			return journalFailed, nil
		}
	case journalSucceeded:
		if t == EventCompensationStarted {
			return journalCompStarted, nil
		}
	case journalCompStarted:
		switch t {
		case EventCompensationRetrying:
			return journalCompStarted, nil
		case EventCompensationSucceeded:
			return journalCompSucceeded, nil
		case EventCompensationFailed:
			return journalCompFailed, nil
		}
	}

	return journalNeverStarted, fmt.Errorf(
		"illegal event type %s for current step status %d", t, int(s),
	)
}

// Journal is an in-memory EventSink that keeps the full event stream of an
// execution and rejects events that violate the per-step lifecycle. It is
// an observability artifact: nothing is ever reloaded from it.
type Journal struct {
	mu         sync.Mutex
	events     []Event
	stepStatus map[int]stepJournalStatus
	unwinding  bool
}

// NewJournal creates a new, empty Journal.
func NewJournal() *Journal {
	return &Journal{
		stepStatus: make(map[int]stepJournalStatus),
	}
}

// Record appends an event, validating step-level ordering. Saga-level
// events (StepIndex < 0) are always accepted.
func (j *Journal) Record(e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.StepIndex >= 0 {
		next, err := j.stepStatus[e.StepIndex].nextStatus(e.Type)
		if err != nil {
			return fmt.Errorf("journal: step %d (%s): %w", e.StepIndex, e.Step, err)
		}
		j.stepStatus[e.StepIndex] = next

		switch next {
		case journalFailed, journalCompStarted:
			j.unwinding = true
		}
	}
	if e.Type == EventSagaAborted {
		j.unwinding = true
	}

	j.events = append(j.events, e)
	return nil
}

// Events returns a copy of the recorded events, in order.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

// Unwinding reports whether any recorded event belongs to the unwind path.
func (j *Journal) Unwinding() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.unwinding
}

// String renders the journal for human inspection.
func (j *Journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("SAGA JOURNAL:\n")
	direction := "forward"
	if j.unwinding {
		direction = "unwinding"
	}
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(j.events)))
	for i, e := range j.events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, e.String()))
	}
	return sb.String()
}
