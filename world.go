package ecs

import (
	"fmt"
	"reflect"

	"go.uber.org/multierr"
)

// World owns the entity allocator, the registered component stores and the
// shared resources. Reads and writes against stores go through handles the
// allocator issued; the world itself never checks liveness on component
// access, that is the generation's job.
type World struct {
	alloc     *Allocator
	storages  *storageRegistry
	resources *Resources
	logger    Logger
}

// WorldOption customizes world construction.
type WorldOption func(*World)

// NewWorld constructs a world with an empty allocator, no registered
// components and a silent logger.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		alloc:     NewAllocator(),
		storages:  newStorageRegistry(),
		resources: NewResources(),
		logger:    NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithAllocator overrides the default entity allocator.
func WithAllocator(alloc *Allocator) WorldOption {
	return func(w *World) {
		if alloc != nil {
			w.alloc = alloc
		}
	}
}

// WithLogger sets the logger used by the world and inherited by
// schedulers built on top of it.
func WithLogger(logger Logger) WorldOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Allocator exposes the backing entity allocator.
func (w *World) Allocator() *Allocator {
	return w.alloc
}

// Resources exposes the shared resource container.
func (w *World) Resources() *Resources {
	return w.resources
}

// Logger returns the world's logger.
func (w *World) Logger() Logger {
	return w.logger
}

// Register binds component type T to a store produced by newStore. The
// constructor is typically storage.NewDense[T] or storage.NewSparse[T],
// but any Store[T] implementation works. Registration happens once per
// component type, before tasks are scheduled against it.
func Register[T any](w *World, newStore func() Store[T]) error {
	if newStore == nil {
		return ErrNilStoreConstructor
	}
	st := newStore()
	if st == nil {
		return ErrNilStore
	}

	erased, ok := st.(erasedStore)
	if !ok {
		erased = eraseStore[T]{Store: st}
	}

	name := componentName[T]()
	if err := w.storages.register(name, erased); err != nil {
		return err
	}
	w.logger.Debug("component registered", "component", name, "store", fmt.Sprintf("%T", st))
	return nil
}

// StoreFor recovers the typed store registered for T. It fails when T was
// never registered, or when the registered store was built for a different
// type that happens to share T's name.
func StoreFor[T any](w *World) (Store[T], error) {
	st, _, err := resolveStore[T](w)
	return st, err
}

// ComponentNames lists the registered component types in lexicographic
// order.
func (w *World) ComponentNames() []string {
	cells := w.storages.ordered()
	names := make([]string, len(cells))
	for i, cell := range cells {
		names[i] = cell.name
	}
	return names
}

// CreateEntity allocates a fresh entity and returns a builder for
// attaching its initial components.
func (w *World) CreateEntity() *EntityBuilder {
	return &EntityBuilder{world: w, entity: w.alloc.Create()}
}

// DestroyEntity releases the handle and propagates teardown to every
// registered store, each applying its own matching rules. It returns false
// for a stale or zero handle without touching any store. Callers must not
// destroy entities while tasks hold storage borrows; from inside a task,
// use the deferred destroy instead.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.alloc.Destroy(e) {
		w.logger.Debug("destroy skipped for stale handle", "entity", e.String())
		return false
	}
	w.storages.each(func(cell *storageCell) {
		cell.store.Delete(e)
	})
	return true
}

// Each calls fn for every live entity until fn returns false.
func (w *World) Each(fn func(Entity) bool) {
	w.alloc.Each(fn)
}

// ApplyCommands runs deferred commands in order. A failing command does
// not stop the ones after it; all failures are collected into the returned
// error.
func (w *World) ApplyCommands(commands []Command) error {
	var err error
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		err = multierr.Append(err, cmd.Apply(w))
	}
	return err
}

// EntityBuilder attaches initial components to a freshly created entity.
// Component writes happen immediately; errors accumulate and come back
// from Build alongside the handle, which stays valid either way.
type EntityBuilder struct {
	world  *World
	entity Entity
	err    error
}

// With stores a component for the entity. The argument may be a component
// value or a pointer to one; its concrete type selects the target store.
func (b *EntityBuilder) With(component any) *EntityBuilder {
	if component == nil {
		b.err = multierr.Append(b.err, fmt.Errorf("%w: nil component", ErrValueTypeMismatch))
		return b
	}
	name, value := normalizeComponent(component)
	cell, ok := b.world.storages.lookup(name)
	if !ok {
		b.err = multierr.Append(b.err, fmt.Errorf("%w: %s", ErrComponentNotRegistered, name))
		return b
	}
	if err := cell.store.Set(b.entity, value); err != nil {
		b.err = multierr.Append(b.err, err)
	}
	return b
}

// Entity returns the handle under construction.
func (b *EntityBuilder) Entity() Entity {
	return b.entity
}

// Build returns the handle and any accumulated component errors.
func (b *EntityBuilder) Build() (Entity, error) {
	return b.entity, b.err
}

func resolveStore[T any](w *World) (Store[T], *storageCell, error) {
	name := componentName[T]()
	cell, ok := w.storages.lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrComponentNotRegistered, name)
	}
	st, ok := cell.store.(Store[T])
	if !ok {
		return nil, cell, fmt.Errorf("%w: %s", ErrStoreTypeMismatch, name)
	}
	return st, cell, nil
}

func componentName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// normalizeComponent unwraps pointer arguments so callers can pass either
// a component value or a pointer to one.
func normalizeComponent(component any) (string, any) {
	v := reflect.ValueOf(component)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v.Type().String(), v.Interface()
}

// eraseStore adapts a plain Store[T] that does not implement the erased
// mutation surface itself.
type eraseStore[T any] struct {
	Store[T]
}

func (s eraseStore[T]) Set(e Entity, value any) error {
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: %T into %s store", ErrValueTypeMismatch, value, componentName[T]())
	}
	s.Insert(e, typed)
	return nil
}

func (s eraseStore[T]) Discard(e Entity) bool {
	_, ok := s.Store.Remove(e)
	return ok
}

var _ erasedStore = eraseStore[struct{}]{}
