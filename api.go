package ecs

// Base is the object-safe face of a component store. It is the only part
// of the storage contract that survives type erasure, which lets the world
// hold heterogeneous stores in one collection and still propagate entity
// teardown to each of them.
type Base interface {
	// Delete drops whatever the store holds for the handle. Strategies
	// differ on how strictly they match the handle; see the storage
	// package for the exact rules. Deleting an absent entity is a no-op.
	Delete(Entity)
}

// Store is the typed contract every storage strategy implements for a
// single component type T. A store maps entity handles to component
// values; it knows nothing about which handles are currently alive.
type Store[T any] interface {
	Base

	// Get returns a copy of the component for the handle, if present.
	Get(Entity) (T, bool)

	// GetMut returns a pointer to the stored component for in-place
	// mutation, or nil if the handle has no component here. The pointer
	// stays valid until the next Insert into this store.
	GetMut(Entity) *T

	// Insert associates the component with the handle, overwriting any
	// previous association the strategy considers equivalent. Insert
	// never fails; slot bookkeeping is internal to the strategy.
	Insert(Entity, T)

	// Remove takes the component out of the store and returns it. The
	// second result is false when the handle had no component here.
	Remove(Entity) (T, bool)

	// Len reports how many components the store currently holds.
	Len() int

	// Iterate visits every stored component until fn returns false. The
	// handle passed to fn carries the generation recorded at insert
	// time.
	Iterate(fn func(Entity, *T) bool)
}

// erasedStore is the registry-internal face of a registered store: the
// teardown hook plus type-checked erased mutation, used by the entity
// builder and by deferred commands.
type erasedStore interface {
	Base

	// Set writes an erased component value, failing when the dynamic
	// type does not match the store's component type.
	Set(Entity, any) error

	// Discard removes the component for the handle, reporting whether
	// anything was removed. The handle is matched by the same rules as
	// the typed Remove.
	Discard(Entity) bool
}

// Command is a deferred structural mutation. Commands queue up while
// tasks hold storage borrows and apply in submission order once the
// scheduler reaches its synchronization point.
type Command interface {
	Apply(world *World) error
}
