package storage

import (
	"fmt"

	"github.com/kamstrup/intmap"

	ecs "github.com/ashkettle/ecs"
)

// NewSparse constructs an empty map-backed store for component type T.
func NewSparse[T any]() ecs.Store[T] {
	return &Sparse[T]{entries: intmap.New[ecs.Entity, *T](8)}
}

// Sparse stores components in an integer-keyed hash map keyed by the full
// entity handle. Memory scales with the number of stored components, not
// with the entity index range, which suits components only a few entities
// carry. Because the key includes the generation, entries written through
// different generations of one index coexist until each is removed with
// its own exact handle.
//
// Values are boxed behind pointers so GetMut can hand out a stable address
// that survives later inserts.
type Sparse[T any] struct {
	entries *intmap.Map[ecs.Entity, *T]
}

// Get returns a copy of the component stored under exactly this handle.
func (s *Sparse[T]) Get(e ecs.Entity) (T, bool) {
	boxed, ok := s.entries.Get(e)
	if !ok {
		var zero T
		return zero, false
	}
	return *boxed, true
}

// GetMut returns a pointer to the component stored under exactly this
// handle, or nil when absent. The pointer stays valid for the lifetime of
// the entry.
func (s *Sparse[T]) GetMut(e ecs.Entity) *T {
	boxed, ok := s.entries.Get(e)
	if !ok {
		return nil
	}
	return boxed
}

// Insert associates the component with exactly this handle. An existing
// entry under the same handle is overwritten in place; entries under other
// generations of the same index are left alone.
func (s *Sparse[T]) Insert(e ecs.Entity, value T) {
	if boxed, ok := s.entries.Get(e); ok {
		*boxed = value
		return
	}
	boxed := value
	s.entries.Put(e, &boxed)
}

// Remove takes the component stored under exactly this handle out of the
// map and returns it.
func (s *Sparse[T]) Remove(e ecs.Entity) (T, bool) {
	boxed, ok := s.entries.Get(e)
	if !ok {
		var zero T
		return zero, false
	}
	s.entries.Del(e)
	return *boxed, true
}

// Delete drops the entry stored under exactly this handle. A handle whose
// generation does not match any entry, including an older generation of a
// live index, is a no-op.
func (s *Sparse[T]) Delete(e ecs.Entity) {
	s.entries.Del(e)
}

// Discard removes the component under the typed Remove rules, reporting
// whether an entry was dropped.
func (s *Sparse[T]) Discard(e ecs.Entity) bool {
	_, ok := s.Remove(e)
	return ok
}

// Set writes an erased component value, failing when the dynamic type is
// not T.
func (s *Sparse[T]) Set(e ecs.Entity, value any) error {
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: %T into %T store", ecs.ErrValueTypeMismatch, value, typed)
	}
	s.Insert(e, typed)
	return nil
}

// Len reports how many entries the map holds.
func (s *Sparse[T]) Len() int {
	return s.entries.Len()
}

// Iterate visits every entry until fn returns false. Order follows the
// map's internal layout and is not stable across mutations.
func (s *Sparse[T]) Iterate(fn func(ecs.Entity, *T) bool) {
	s.entries.ForEach(func(e ecs.Entity, boxed *T) bool {
		return fn(e, boxed)
	})
}

var _ ecs.Store[struct{}] = (*Sparse[struct{}])(nil)
