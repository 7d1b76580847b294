package ecs

import "sync"

// Resources holds shared state that is not tied to any entity, keyed by
// name. Access is safe for concurrent use, but the container does not
// coordinate with storage borrows; values that tasks mutate should carry
// their own synchronization.
type Resources struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewResources constructs an empty resource container.
func NewResources() *Resources {
	return &Resources{values: make(map[string]any)}
}

// Get returns the named resource, if set.
func (r *Resources) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Set stores the named resource, replacing any previous value.
func (r *Resources) Set(name string, value any) {
	r.mu.Lock()
	r.values[name] = value
	r.mu.Unlock()
}

// Delete removes the named resource.
func (r *Resources) Delete(name string) {
	r.mu.Lock()
	delete(r.values, name)
	r.mu.Unlock()
}

// Len reports how many resources are set.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// Range calls fn for each resource until fn returns false. Iteration order
// is unspecified.
func (r *Resources) Range(fn func(string, any) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, v := range r.values {
		if !fn(k, v) {
			return
		}
	}
}

// GetResource returns the named resource typed as T. The second result is
// false when the resource is absent or holds a different type.
func GetResource[T any](r *Resources, name string) (T, bool) {
	v, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
