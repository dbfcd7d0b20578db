package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry holds components in registration order. StartAll starts them in
// that order and StopAll stops them in reverse, so dependents shut down
// before their dependencies.
type Registry struct {
	mu         sync.Mutex
	components []Component
	names      map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a component. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if name == "" {
		return fmt.Errorf("component name is required")
	}
	if r.names[name] {
		return fmt.Errorf("component %q already registered", name)
	}
	r.names[name] = true
	r.components = append(r.components, c)
	return nil
}

// StartAll starts every component in registration order. The first failure
// aborts the sequence; already-started components are left for StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, c := range r.snapshot() {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
	}
	return nil
}

// StopAll stops every component in reverse registration order, collecting
// all failures rather than aborting on the first.
func (r *Registry) StopAll(ctx context.Context) error {
	components := r.snapshot()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", components[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// HealthAll reports the health of every component.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	components := r.snapshot()

	results := make([]Health, 0, len(components))
	for _, c := range components {
		results = append(results, c.Health(ctx))
	}
	return results
}

func (r *Registry) snapshot() []Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Component, len(r.components))
	copy(out, r.components)
	return out
}
