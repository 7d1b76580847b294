package ecs

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

// storageCell pairs a registered store with its borrow lock. The scheduler
// takes the lock read-side for tasks that declare the component read-only
// and write-side for tasks that mutate it; the store itself carries no
// synchronization of its own.
type storageCell struct {
	name  string
	store erasedStore
	mu    sync.RWMutex
}

// storageRegistry keeps registered stores keyed by component name. A tree
// map gives the cells a stable lexicographic order; the scheduler acquires
// borrow locks in that order, which rules out lock-order inversion between
// concurrent tasks.
type storageRegistry struct {
	mu    sync.RWMutex
	cells *treemap.Map
}

func newStorageRegistry() *storageRegistry {
	return &storageRegistry{cells: treemap.NewWithStringComparator()}
}

func (r *storageRegistry) register(name string, store erasedStore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cells.Get(name); exists {
		return fmt.Errorf("%w: %s", ErrComponentAlreadyRegistered, name)
	}
	r.cells.Put(name, &storageCell{name: name, store: store})
	return nil
}

func (r *storageRegistry) lookup(name string) (*storageCell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.cells.Get(name)
	if !ok {
		return nil, false
	}
	return value.(*storageCell), true
}

// each visits every cell in component-name order.
func (r *storageRegistry) each(fn func(*storageCell)) {
	for _, cell := range r.ordered() {
		fn(cell)
	}
}

// ordered snapshots the cells in component-name order.
func (r *storageRegistry) ordered() []*storageCell {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cells := make([]*storageCell, 0, r.cells.Size())
	r.cells.Each(func(_ any, value any) {
		cells = append(cells, value.(*storageCell))
	})
	return cells
}

func (r *storageRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cells.Size()
}
