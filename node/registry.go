package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/streamflow/errors"
)

// Factory builds a node instance from raw encoded options (YAML or JSON).
type Factory func(options []byte) (Interface, error)

// Registry maps node kind names to factories. Concrete node kinds are data,
// not subclasses: one implementation parameterized by its options can back
// several registered kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a kind name. Registering the same kind
// twice is a configuration error.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" || factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			"kind and factory must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			fmt.Sprintf("kind %q already registered", kind))
	}
	r.factories[kind] = factory
	return nil
}

// New builds a node of the given kind from encoded options.
func (r *Registry) New(kind string, options []byte) (Interface, error) {
	r.mu.RLock()
	factory, exists := r.factories[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "New",
			fmt.Sprintf("unknown node kind %q", kind))
	}
	return factory(options)
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
