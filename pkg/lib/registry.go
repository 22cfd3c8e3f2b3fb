package lib

import "github.com/slok/ukit/internal/registry"

// Registry is an explicit service container mapping names to factories.
// There is no hidden process-wide registry, create one and pass it around.
type Registry = registry.Registry

// Factory creates a service instance for a [Registry].
type Factory = registry.Factory

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry { return registry.New() }

// ResolveAs resolves a service from the registry and asserts its type.
func ResolveAs[T any](r *Registry, name string) (T, error) { return registry.ResolveAs[T](r, name) }
