package storage

import (
	"fmt"

	ecs "github.com/ashkettle/ecs"
)

// NewDense constructs an empty array-backed store for component type T.
func NewDense[T any]() ecs.Store[T] {
	return &Dense[T]{}
}

// Dense stores components in a slot array indexed by entity index. Lookups
// are a bounds check and a generation compare; iteration walks the slots
// in index order. The array grows to cover the highest index ever inserted
// and never shrinks, so a vacated slot keeps its capacity for the next
// occupant of that index.
type Dense[T any] struct {
	slots []denseSlot[T]
	count int
}

type denseSlot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Get returns a copy of the component for the handle. The handle must hit
// an occupied slot whose recorded generation matches exactly.
func (s *Dense[T]) Get(e ecs.Entity) (T, bool) {
	var zero T
	idx := int(e.Index())
	if idx >= len(s.slots) {
		return zero, false
	}
	slot := &s.slots[idx]
	if !slot.occupied || slot.generation != e.Generation() {
		return zero, false
	}
	return slot.value, true
}

// GetMut returns a pointer into the slot array for in-place mutation, or
// nil when the handle misses. The pointer is invalidated by the next
// Insert, which may grow the array.
func (s *Dense[T]) GetMut(e ecs.Entity) *T {
	idx := int(e.Index())
	if idx >= len(s.slots) {
		return nil
	}
	slot := &s.slots[idx]
	if !slot.occupied || slot.generation != e.Generation() {
		return nil
	}
	return &slot.value
}

// Insert writes the component into the handle's index slot, growing the
// array as needed. The write is unconditional: whatever occupied the index
// before, under any generation, is replaced and the handle's generation is
// recorded as the slot's new metadata.
func (s *Dense[T]) Insert(e ecs.Entity, value T) {
	idx := int(e.Index())
	s.ensureCapacity(idx + 1)
	slot := &s.slots[idx]
	if !slot.occupied {
		s.count++
	}
	slot.value = value
	slot.generation = e.Generation()
	slot.occupied = true
}

// Remove takes the component out of the handle's slot and returns it. The
// recorded generation must match the handle's, otherwise nothing happens.
func (s *Dense[T]) Remove(e ecs.Entity) (T, bool) {
	var zero T
	idx := int(e.Index())
	if idx >= len(s.slots) {
		return zero, false
	}
	slot := &s.slots[idx]
	if !slot.occupied || slot.generation != e.Generation() {
		return zero, false
	}
	value := slot.value
	slot.value = zero
	slot.occupied = false
	s.count--
	return value, true
}

// Delete clears the handle's index slot regardless of which generation
// wrote it. Out-of-range indices are ignored. This is the teardown hook
// the world calls when an entity dies; by then the index is the only part
// of the handle that still identifies the slot.
func (s *Dense[T]) Delete(e ecs.Entity) {
	idx := int(e.Index())
	if idx >= len(s.slots) {
		return
	}
	slot := &s.slots[idx]
	if !slot.occupied {
		return
	}
	var zero T
	slot.value = zero
	slot.occupied = false
	s.count--
}

// Discard removes the component under the typed Remove rules, reporting
// whether a value was dropped.
func (s *Dense[T]) Discard(e ecs.Entity) bool {
	_, ok := s.Remove(e)
	return ok
}

// Set writes an erased component value, failing when the dynamic type is
// not T.
func (s *Dense[T]) Set(e ecs.Entity, value any) error {
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: %T into %T store", ecs.ErrValueTypeMismatch, value, typed)
	}
	s.Insert(e, typed)
	return nil
}

// Len reports how many slots are currently occupied.
func (s *Dense[T]) Len() int {
	return s.count
}

// Iterate visits occupied slots in ascending index order until fn returns
// false. Handles are rebuilt from the slot's recorded generation.
func (s *Dense[T]) Iterate(fn func(ecs.Entity, *T) bool) {
	for idx := range s.slots {
		slot := &s.slots[idx]
		if !slot.occupied {
			continue
		}
		if !fn(ecs.NewEntity(uint32(idx), slot.generation), &slot.value) {
			return
		}
	}
}

func (s *Dense[T]) ensureCapacity(size int) {
	if size <= len(s.slots) {
		return
	}
	diff := size - len(s.slots)
	s.slots = append(s.slots, make([]denseSlot[T], diff)...)
}

var _ ecs.Store[struct{}] = (*Dense[struct{}])(nil)
