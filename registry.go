package saga

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds reusable step definitions shared across sagas.
//
// Applications that assemble sagas dynamically register their steps once,
// by name, and pull them into builders with Builder.StepFrom. The registry
// is safe for concurrent use.
type Registry[C any] struct {
	steps *xsync.MapOf[string, StepDefinition[C]]
}

// NewRegistry creates a new, empty Registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		steps: xsync.NewMapOf[string, StepDefinition[C]](),
	}
}

// Register adds a step definition to the registry. The name must be
// non-empty and not registered yet, and the action must be non-nil.
func (r *Registry[C]) Register(def StepDefinition[C]) error {
	if def.Name == "" {
		return fmt.Errorf("step name must not be empty")
	}
	if def.Action == nil {
		return fmt.Errorf("step %q has no action", def.Name)
	}
	if _, ok := r.steps.Load(def.Name); ok {
		return fmt.Errorf("step %q already registered", def.Name)
	}
	r.steps.Store(def.Name, def)
	return nil
}

// MustRegister is Register that panics on error, for wiring-time use.
func (r *Registry[C]) MustRegister(def StepDefinition[C]) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get retrieves a step definition by name.
func (r *Registry[C]) Get(name string) (StepDefinition[C], bool) {
	return r.steps.Load(name)
}

// Names returns the registered step names, sorted.
func (r *Registry[C]) Names() []string {
	names := make([]string, 0, r.steps.Size())
	r.steps.Range(func(name string, _ StepDefinition[C]) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
