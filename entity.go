package ecs

import (
	"fmt"
	"sync"
)

// Entity identifies a logical object as a packed (index, generation) pair.
// The index addresses a storage slot; the generation counts how many times
// that slot has been recycled, so a stale handle never aliases the slot's
// next occupant. Entities are plain values: comparable, hashable and cheap
// to copy.
type Entity uint64

// NewEntity assembles a handle from raw parts. No validation happens here;
// whether the handle means anything is decided by the allocator or storage
// it is presented to.
func NewEntity(index, generation uint32) Entity {
	return Entity(uint64(index)<<32 | uint64(generation))
}

// Index returns the storage slot this handle addresses.
func (e Entity) Index() uint32 {
	return uint32(e >> 32)
}

// Generation returns the recycling counter stamped into the handle.
func (e Entity) Generation() uint32 {
	return uint32(e)
}

// IsZero reports whether the handle is the zero value. The allocator never
// issues generation zero, so the zero Entity doubles as a null sentinel.
func (e Entity) IsZero() bool {
	return e == 0
}

// String renders the handle for debugging purposes.
func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.Index(), e.Generation())
}

// NewAllocator constructs an empty entity allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocator issues entity handles and recycles their indices. The
// generation for an index advances on both issue and release, so a live
// slot always holds an odd generation and every outstanding handle for a
// dead slot mismatches the slot's current generation.
type Allocator struct {
	mu          sync.Mutex
	generations []uint32
	free        []uint32
	alive       uint32
}

// Create issues a fresh handle, reusing a freed index when one is
// available. Safe for concurrent use.
func (a *Allocator) Create() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.generations))
		a.generations = append(a.generations, 0)
	}

	a.generations[index]++
	a.alive++
	return NewEntity(index, a.generations[index])
}

// Destroy releases the handle's index for reuse. It returns false when the
// handle is stale or the zero value, leaving the allocator untouched.
func (a *Allocator) Destroy(e Entity) bool {
	if e.IsZero() {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isAliveLocked(e) {
		return false
	}

	a.alive--
	a.generations[e.Index()]++
	a.free = append(a.free, e.Index())
	return true
}

// IsAlive reports whether the handle refers to a currently allocated
// entity.
func (a *Allocator) IsAlive(e Entity) bool {
	if e.IsZero() {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isAliveLocked(e)
}

// Count returns the number of live entities.
func (a *Allocator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.alive)
}

// Each calls fn for every live entity. The walk runs over a snapshot of
// the generation table, so fn may call back into the allocator.
func (a *Allocator) Each(fn func(Entity) bool) {
	a.mu.Lock()
	snapshot := make([]uint32, len(a.generations))
	copy(snapshot, a.generations)
	a.mu.Unlock()

	for idx, gen := range snapshot {
		// Odd generation means the slot is currently issued.
		if gen%2 == 0 {
			continue
		}
		if !fn(NewEntity(uint32(idx), gen)) {
			return
		}
	}
}

func (a *Allocator) isAliveLocked(e Entity) bool {
	idx := e.Index()
	if idx >= uint32(len(a.generations)) {
		return false
	}
	return a.generations[idx] == e.Generation()
}
