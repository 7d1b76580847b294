package storage

import (
	"fmt"

	"github.com/kamstrup/intmap"

	ecs "github.com/ashkettle/ecs"
)

// NewShared constructs an empty flyweight store for component type T.
func NewShared[T comparable]() ecs.Store[T] {
	return &Shared[T]{entries: intmap.New[ecs.Entity, *sharedBox[T]](8)}
}

// Shared stores one box per distinct component value and points any number
// of entities at it, which suits archetype-style data carried unchanged by
// large entity groups. Keys are full handles with the same exactness rules
// as the sparse store.
//
// Insert deduplicates by scanning the live values, so the store is built
// for a small set of distinct values shared widely, not for per-entity
// data. GetMut detaches the entity onto its own copy first whenever the
// value is shared; detached copies are not merged back, and pointers
// yielded by Iterate must be treated as read-only, since a write through
// one reaches every entity sharing the box.
type Shared[T comparable] struct {
	entries *intmap.Map[ecs.Entity, *sharedBox[T]]
	boxes   []*sharedBox[T]
}

type sharedBox[T comparable] struct {
	value T
	refs  int
}

// Get returns a copy of the component stored under exactly this handle.
func (s *Shared[T]) Get(e ecs.Entity) (T, bool) {
	box, ok := s.entries.Get(e)
	if !ok {
		var zero T
		return zero, false
	}
	return box.value, true
}

// GetMut returns a pointer to this entity's own copy of the component, or
// nil when absent. A shared value is detached onto a private box first, so
// writes through the pointer never reach other entities.
func (s *Shared[T]) GetMut(e ecs.Entity) *T {
	box, ok := s.entries.Get(e)
	if !ok {
		return nil
	}
	if box.refs == 1 {
		return &box.value
	}
	box.refs--
	detached := &sharedBox[T]{value: box.value, refs: 1}
	s.boxes = append(s.boxes, detached)
	s.entries.Put(e, detached)
	return &detached.value
}

// Insert associates the component with exactly this handle, pointing the
// entity at an existing box when one already holds an equal value.
func (s *Shared[T]) Insert(e ecs.Entity, value T) {
	if box, ok := s.entries.Get(e); ok {
		if box.value == value {
			return
		}
		s.release(box)
	}
	s.entries.Put(e, s.attach(value))
}

// Remove takes this handle's component out of the store and returns it.
// The backing box is freed once its last entity is gone.
func (s *Shared[T]) Remove(e ecs.Entity) (T, bool) {
	box, ok := s.entries.Get(e)
	if !ok {
		var zero T
		return zero, false
	}
	value := box.value
	s.entries.Del(e)
	s.release(box)
	return value, true
}

// Delete drops the entry stored under exactly this handle.
func (s *Shared[T]) Delete(e ecs.Entity) {
	if box, ok := s.entries.Get(e); ok {
		s.entries.Del(e)
		s.release(box)
	}
}

// Discard removes the component under the typed Remove rules, reporting
// whether an entry was dropped.
func (s *Shared[T]) Discard(e ecs.Entity) bool {
	_, ok := s.Remove(e)
	return ok
}

// Set writes an erased component value, failing when the dynamic type is
// not T.
func (s *Shared[T]) Set(e ecs.Entity, value any) error {
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: %T into %T store", ecs.ErrValueTypeMismatch, value, typed)
	}
	s.Insert(e, typed)
	return nil
}

// Len reports how many entities hold the component, not how many distinct
// values exist.
func (s *Shared[T]) Len() int {
	return s.entries.Len()
}

// Iterate visits every entity until fn returns false. The yielded pointer
// aliases the entity's current box; treat it as read-only and mutate
// through GetMut instead.
func (s *Shared[T]) Iterate(fn func(ecs.Entity, *T) bool) {
	s.entries.ForEach(func(e ecs.Entity, box *sharedBox[T]) bool {
		return fn(e, &box.value)
	})
}

// Stats reports how effectively values are being shared.
func (s *Shared[T]) Stats() SharedStats {
	entities := s.entries.Len()
	return SharedStats{
		Entities:     entities,
		UniqueValues: len(s.boxes),
		SharingRatio: float64(entities) / float64(max(len(s.boxes), 1)),
	}
}

// SharedStats describes a shared store's population. SharingRatio is the
// average number of entities per distinct value; higher means more reuse.
type SharedStats struct {
	Entities     int
	UniqueValues int
	SharingRatio float64
}

func (s *Shared[T]) attach(value T) *sharedBox[T] {
	for _, box := range s.boxes {
		if box.value == value {
			box.refs++
			return box
		}
	}
	box := &sharedBox[T]{value: value, refs: 1}
	s.boxes = append(s.boxes, box)
	return box
}

func (s *Shared[T]) release(box *sharedBox[T]) {
	box.refs--
	if box.refs > 0 {
		return
	}
	for i, candidate := range s.boxes {
		if candidate == box {
			s.boxes[i] = s.boxes[len(s.boxes)-1]
			s.boxes = s.boxes[:len(s.boxes)-1]
			return
		}
	}
}

var _ ecs.Store[struct{}] = (*Shared[struct{}])(nil)
