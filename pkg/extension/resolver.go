package extension

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

const resolverLogPrefix = "extension:resolver"

// Resolver picks an implementation from a Registry at call time, driven by
// the endpoint descriptor carried with the call.
//
// Resolution walks the candidate keys in order and takes the first key with a
// non-empty value in the descriptor; an empty value is treated exactly like
// an absent key. When no key matches, the registry default is used. When no
// default is configured either, resolution fails with AMBIGUOUS_EXTENSION. A
// name supplied by the descriptor but not registered fails with UNKNOWN_NAME
// so configuration typos stay visible.
//
// A Resolver is constructed once per capability and shared by many concurrent
// calls.
type Resolver[T any] struct {
	registry *Registry[T]
	keys     []string

	// cache holds the last (parameter snapshot, resolved name) pair. It is
	// an optimization only: staleness costs one redundant resolution, never
	// a wrong answer, because the snapshot is re-validated on every call.
	cache       atomic.Pointer[resolverCacheEntry]
	resolutions atomic.Int64
}

type resolverCacheEntry struct {
	params map[string]string
	name   string
}

// NewResolver creates a Resolver over reg with the given candidate parameter
// keys. With no keys, a single key is derived from the capability name via
// DeriveKey.
func NewResolver[T any](reg *Registry[T], keys ...string) *Resolver[T] {
	if len(keys) == 0 {
		keys = []string{DeriveKey(reg.Capability())}
	}
	return &Resolver[T]{
		registry: reg,
		keys:     keys,
	}
}

// Keys returns the candidate parameter keys, in priority order.
func (r *Resolver[T]) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Resolve returns the implementation selected by the descriptor.
func (r *Resolver[T]) Resolve(d *endpoint.Descriptor) (T, error) {
	name, err := r.ResolveName(d)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.registry.Get(name)
}

// ResolveName returns the extension name the descriptor selects, without
// looking up the implementation.
func (r *Resolver[T]) ResolveName(d *endpoint.Descriptor) (string, error) {
	if d == nil {
		return "", &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("%s - nil descriptor for capability %s", resolverLogPrefix, r.registry.Capability())}
	}

	snapshot := r.relevantParams(d)
	if cached := r.cache.Load(); cached != nil && paramsMatch(cached.params, snapshot) {
		return cached.name, nil
	}

	name, err := r.resolveUncached(d)
	if err != nil {
		return "", err
	}
	r.cache.Store(&resolverCacheEntry{params: snapshot, name: name})
	return name, nil
}

func (r *Resolver[T]) resolveUncached(d *endpoint.Descriptor) (string, error) {
	r.resolutions.Add(1)

	for _, key := range r.keys {
		if value, ok := d.Parameter(key); ok {
			// The descriptor named an extension explicitly; an unknown name
			// here is a configuration typo and must surface as UNKNOWN_NAME.
			if _, err := r.registry.Get(value); err != nil {
				return "", err
			}
			slog.Debug(fmt.Sprintf("%s - capability=%s key=%s resolved=%s", resolverLogPrefix, r.registry.Capability(), key, value))
			return value, nil
		}
	}

	if name := r.registry.DefaultName(); name != "" {
		if _, err := r.registry.Get(name); err != nil {
			return "", err
		}
		slog.Debug(fmt.Sprintf("%s - capability=%s resolved=%s (default)", resolverLogPrefix, r.registry.Capability(), name))
		return name, nil
	}

	return "", &Error{
		Code:    CodeAmbiguousExtension,
		Message: fmt.Sprintf("%s - no key in %v matched and no default configured for capability %s", resolverLogPrefix, r.keys, r.registry.Capability()),
	}
}

// relevantParams snapshots only the candidate keys' values; other descriptor
// parameters cannot change the outcome, so they do not invalidate the cache.
func (r *Resolver[T]) relevantParams(d *endpoint.Descriptor) map[string]string {
	snapshot := make(map[string]string, len(r.keys))
	for _, key := range r.keys {
		if value, ok := d.Parameter(key); ok {
			snapshot[key] = value
		}
	}
	return snapshot
}

func paramsMatch(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
