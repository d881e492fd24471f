// Package extension implements adaptive extension dispatch: per-capability
// registries of named implementations and a call-time resolver that picks one
// of them from endpoint descriptor parameters.
package extension

import (
	"fmt"
	"sort"
	"sync"
)

const registryLogPrefix = "extension:registry"

// Registry holds the named implementations of one capability interface,
// plus an optional default name. It is populated during initialization and
// read-mostly afterwards; all methods are safe for concurrent use.
type Registry[T any] struct {
	capability string

	mu          sync.RWMutex
	impls       map[string]T
	defaultName string
}

// NewRegistry creates an empty registry for the named capability
// (e.g. "Protocol" or "orders.OrderService").
func NewRegistry[T any](capability string) *Registry[T] {
	return &Registry[T]{
		capability: capability,
		impls:      make(map[string]T),
	}
}

// Capability returns the capability name this registry was created for.
func (r *Registry[T]) Capability() string { return r.capability }

// Register adds an implementation under name. Registering a name twice fails
// with DUPLICATE_NAME; there are no replace semantics.
func (r *Registry[T]) Register(name string, impl T) error {
	if name == "" {
		return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("%s - empty extension name for capability %s", registryLogPrefix, r.capability)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.impls[name]; exists {
		return &Error{Code: CodeDuplicateName, Message: fmt.Sprintf("%s - extension %q already registered for capability %s", registryLogPrefix, name, r.capability)}
	}
	r.impls[name] = impl
	return nil
}

// SetDefault records the name used when no call-time selector matches.
// The name must already be registered.
func (r *Registry[T]) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.impls[name]; !exists {
		return &Error{Code: CodeUnknownName, Message: fmt.Sprintf("%s - cannot default to unregistered extension %q for capability %s", registryLogPrefix, name, r.capability)}
	}
	r.defaultName = name
	return nil
}

// Get returns the implementation registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, exists := r.impls[name]
	if !exists {
		var zero T
		return zero, &Error{Code: CodeUnknownName, Message: fmt.Sprintf("%s - unknown extension %q for capability %s", registryLogPrefix, name, r.capability)}
	}
	return impl, nil
}

// Default returns the implementation registered under the default name.
func (r *Registry[T]) Default() (T, error) {
	r.mu.RLock()
	name := r.defaultName
	r.mu.RUnlock()

	if name == "" {
		var zero T
		return zero, &Error{Code: CodeNoDefault, Message: fmt.Sprintf("%s - no default extension configured for capability %s", registryLogPrefix, r.capability)}
	}
	return r.Get(name)
}

// DefaultName returns the configured default name ("" when unset).
func (r *Registry[T]) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Names returns the registered extension names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.impls))
	for name := range r.impls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
