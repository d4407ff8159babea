package saga

import (
	"time"

	"github.com/tidwall/btree"
)

// StepStatus is the per-step execution status recorded in the trace.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepCompleted
	StepFailed
	StepCompensating
	StepCompensated
	StepCompensationFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	case StepCompensating:
		return "compensating"
	case StepCompensated:
		return "compensated"
	case StepCompensationFailed:
		return "compensation_failed"
	default:
		return "unknown"
	}
}

// StepRecord is the audit record for a single step of one execution.
type StepRecord struct {
	Index      int
	Name       string
	Status     StepStatus
	Attempts   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time

	// CompAttempts and CompErr describe the compensation, when one ran.
	CompAttempts int
	CompErr      error
}

// Trace is the ordered per-step audit trail of a single execution. Records
// are keyed by declaration index, so the trail stays unambiguous even when
// step names repeat.
type Trace struct {
	records *btree.Map[int, *StepRecord]
}

func newTrace() *Trace {
	return &Trace{records: btree.NewMap[int, *StepRecord](8)}
}

func (t *Trace) set(r *StepRecord) {
	t.records.Set(r.Index, r)
}

// Record returns the record for the step at the given declaration index.
func (t *Trace) Record(index int) (*StepRecord, bool) {
	return t.records.Get(index)
}

// ByName returns the first record whose step carries the given name.
func (t *Trace) ByName(name string) (*StepRecord, bool) {
	var found *StepRecord
	t.records.Scan(func(_ int, r *StepRecord) bool {
		if r.Name == name {
			found = r
			return false
		}
		return true
	})
	return found, found != nil
}

// Records returns all records in declaration order.
func (t *Trace) Records() []*StepRecord {
	out := make([]*StepRecord, 0, t.records.Len())
	t.records.Scan(func(_ int, r *StepRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Len returns the number of steps that have a record.
func (t *Trace) Len() int {
	return t.records.Len()
}
