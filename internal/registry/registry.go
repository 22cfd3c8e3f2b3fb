package registry

import (
	"fmt"
	"sync"

	"github.com/slok/ukit/internal/model"
)

// Factory creates a service instance.
type Factory func() (any, error)

// Registry is an explicit service container mapping names to factories.
//
// There is no hidden process-wide registry, create one and pass it
// around (or thread it through constructors). Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		instances: map[string]any{},
	}
}

// Register registers a factory under a name. Resolving the name invokes
// the factory every time. Registering an existing name fails.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("service name is required: %w", model.ErrNotValid)
	}
	if factory == nil {
		return fmt.Errorf("factory is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("service %q: %w", name, model.ErrAlreadyExists)
	}
	r.factories[name] = factory

	return nil
}

// RegisterSingleton registers a factory whose result is created once on
// first resolution and shared afterwards.
func (r *Registry) RegisterSingleton(name string, factory Factory) error {
	var once sync.Once
	var instance any
	var err error

	return r.Register(name, func() (any, error) {
		once.Do(func() { instance, err = factory() })
		return instance, err
	})
}

// Resolve creates and returns the service registered under the name.
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("service %q: %w", name, model.ErrNotFound)
	}

	instance, err := factory()
	if err != nil {
		return nil, fmt.Errorf("could not create service %q: %w", name, err)
	}

	return instance, nil
}

// Names returns the registered service names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// ResolveAs resolves a service and asserts its type.
func ResolveAs[T any](r *Registry, name string) (T, error) {
	var zero T

	instance, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has type %T, expected %T: %w", name, instance, zero, model.ErrNotValid)
	}

	return typed, nil
}
