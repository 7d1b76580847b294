package ecs

// Typed task submission. Each runner declares its component access in its
// name: the W types are written, the R types are read. The first type
// parameter's store drives iteration, and an entity is visited only when
// every declared store holds a component for its exact handle. The driving
// store's pointer aliases storage shared with concurrent readers, so under
// a read declaration treat it as read-only; joined read components arrive
// as per-entity copies, and writes to those are dropped.
//
// Runners resolve their component types at submission and panic when one
// was never registered, since that is a wiring bug rather than a runtime
// condition.

// Run0W1R submits a task that reads R over every entity holding it.
func Run0W1R[R any](s *Scheduler, fn func(Entity, *R)) {
	rStore, rCell := mustResolve[R](s)
	access := taskAccess{
		name:  taskName("0w1r", rCell),
		reads: []*storageCell{rCell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		rStore.Iterate(func(e Entity, r *R) bool {
			fn(e, r)
			visited++
			return true
		})
		return visited
	})
}

// Run0W2R submits a task that reads R1 and R2 over entities holding both.
func Run0W2R[R1, R2 any](s *Scheduler, fn func(Entity, *R1, *R2)) {
	r1Store, r1Cell := mustResolve[R1](s)
	r2Store, r2Cell := mustResolve[R2](s)
	access := taskAccess{
		name:  taskName("0w2r", r1Cell, r2Cell),
		reads: []*storageCell{r1Cell, r2Cell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		r1Store.Iterate(func(e Entity, r1 *R1) bool {
			r2, ok := r2Store.Get(e)
			if !ok {
				return true
			}
			fn(e, r1, &r2)
			visited++
			return true
		})
		return visited
	})
}

// Run0W3R submits a task that reads R1, R2 and R3 over entities holding
// all three.
func Run0W3R[R1, R2, R3 any](s *Scheduler, fn func(Entity, *R1, *R2, *R3)) {
	r1Store, r1Cell := mustResolve[R1](s)
	r2Store, r2Cell := mustResolve[R2](s)
	r3Store, r3Cell := mustResolve[R3](s)
	access := taskAccess{
		name:  taskName("0w3r", r1Cell, r2Cell, r3Cell),
		reads: []*storageCell{r1Cell, r2Cell, r3Cell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		r1Store.Iterate(func(e Entity, r1 *R1) bool {
			r2, ok := r2Store.Get(e)
			if !ok {
				return true
			}
			r3, ok := r3Store.Get(e)
			if !ok {
				return true
			}
			fn(e, r1, &r2, &r3)
			visited++
			return true
		})
		return visited
	})
}

// Run1W0R submits a task that writes W over every entity holding it.
func Run1W0R[W any](s *Scheduler, fn func(Entity, *W)) {
	wStore, wCell := mustResolve[W](s)
	access := taskAccess{
		name:   taskName("1w0r", wCell),
		writes: []*storageCell{wCell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		wStore.Iterate(func(e Entity, w *W) bool {
			fn(e, w)
			visited++
			return true
		})
		return visited
	})
}

// Run1W1R submits a task that writes W and reads R over entities holding
// both.
func Run1W1R[W, R any](s *Scheduler, fn func(Entity, *W, *R)) {
	wStore, wCell := mustResolve[W](s)
	rStore, rCell := mustResolve[R](s)
	access := taskAccess{
		name:   taskName("1w1r", wCell, rCell),
		reads:  []*storageCell{rCell},
		writes: []*storageCell{wCell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		wStore.Iterate(func(e Entity, w *W) bool {
			r, ok := rStore.Get(e)
			if !ok {
				return true
			}
			fn(e, w, &r)
			visited++
			return true
		})
		return visited
	})
}

// Run1W2R submits a task that writes W and reads R1 and R2 over entities
// holding all three.
func Run1W2R[W, R1, R2 any](s *Scheduler, fn func(Entity, *W, *R1, *R2)) {
	wStore, wCell := mustResolve[W](s)
	r1Store, r1Cell := mustResolve[R1](s)
	r2Store, r2Cell := mustResolve[R2](s)
	access := taskAccess{
		name:   taskName("1w2r", wCell, r1Cell, r2Cell),
		reads:  []*storageCell{r1Cell, r2Cell},
		writes: []*storageCell{wCell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		wStore.Iterate(func(e Entity, w *W) bool {
			r1, ok := r1Store.Get(e)
			if !ok {
				return true
			}
			r2, ok := r2Store.Get(e)
			if !ok {
				return true
			}
			fn(e, w, &r1, &r2)
			visited++
			return true
		})
		return visited
	})
}

// Run2W0R submits a task that writes W1 and W2 over entities holding
// both.
func Run2W0R[W1, W2 any](s *Scheduler, fn func(Entity, *W1, *W2)) {
	w1Store, w1Cell := mustResolve[W1](s)
	w2Store, w2Cell := mustResolve[W2](s)
	access := taskAccess{
		name:   taskName("2w0r", w1Cell, w2Cell),
		writes: []*storageCell{w1Cell, w2Cell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		w1Store.Iterate(func(e Entity, w1 *W1) bool {
			w2 := w2Store.GetMut(e)
			if w2 == nil {
				return true
			}
			fn(e, w1, w2)
			visited++
			return true
		})
		return visited
	})
}

// Run2W1R submits a task that writes W1 and W2 and reads R over entities
// holding all three.
func Run2W1R[W1, W2, R any](s *Scheduler, fn func(Entity, *W1, *W2, *R)) {
	w1Store, w1Cell := mustResolve[W1](s)
	w2Store, w2Cell := mustResolve[W2](s)
	rStore, rCell := mustResolve[R](s)
	access := taskAccess{
		name:   taskName("2w1r", w1Cell, w2Cell, rCell),
		reads:  []*storageCell{rCell},
		writes: []*storageCell{w1Cell, w2Cell},
	}
	s.submit(access, func(*TaskContext) int {
		visited := 0
		w1Store.Iterate(func(e Entity, w1 *W1) bool {
			w2 := w2Store.GetMut(e)
			if w2 == nil {
				return true
			}
			r, ok := rStore.Get(e)
			if !ok {
				return true
			}
			fn(e, w1, w2, &r)
			visited++
			return true
		})
		return visited
	})
}
