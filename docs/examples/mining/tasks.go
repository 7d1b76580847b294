package mining

import "github.com/ashkettle/ecs"

// extractRange2 is the squared distance within which a miner can work a
// deposit.
const extractRange2 = 4.0

// Move advances every entity by its velocity. Submitted as a
// one-writer-one-reader task, it runs in parallel with tasks touching
// other components. Deposits have no velocity, so the join skips them.
func Move(_ ecs.Entity, p *Position, v *Velocity) {
	p.X += v.DX
	p.Y += v.DY
}

// Rest decays fatigue one level per step. The planning task removes the
// component once it reaches zero.
func Rest(_ ecs.Entity, f *Fatigue) {
	if f.Level > 0 {
		f.Level--
	}
}

// Plan is the exclusive per-step task: it assigns work to every miner,
// extracts ore, banks full loads and clears recovered fatigue. It runs
// with every store borrowed, so component access goes straight through
// the world; structural changes queue on the task context and apply at
// the synchronization point.
func Plan(tc *ecs.TaskContext) {
	world := tc.World()
	positions := mustStore[Position](world)
	velocities := mustStore[Velocity](world)
	miners := mustStore[Miner](world)
	profiles := mustStore[Profile](world)
	deposits := mustStore[Deposit](world)
	fatigues := mustStore[Fatigue](world)
	stockpile, _ := ecs.GetResource[*Stockpile](world.Resources(), StockpileResource)

	fatigues.Iterate(func(e ecs.Entity, f *Fatigue) bool {
		if f.Level <= 0 {
			tc.Remove(e, Fatigue{})
		}
		return true
	})

	miners.Iterate(func(e ecs.Entity, m *Miner) bool {
		p := positions.GetMut(e)
		v := velocities.GetMut(e)
		prof, ok := profiles.Get(e)
		if p == nil || v == nil || !ok {
			return true
		}

		// A fatigued miner stands still until the fatigue rests off.
		if f := fatigues.GetMut(e); f != nil && f.Level > 0 {
			*v = Velocity{}
			return true
		}

		target, targetPos, ok := nearestDeposit(positions, deposits, *p)

		// Bank the load when full, or when nothing is left to mine.
		if m.Carrying > 0 && (m.Carrying >= prof.Capacity || !ok) {
			if stockpile != nil {
				stockpile.Ore += m.Carrying
			}
			tc.Logger().Info("load delivered", "miner", e.String(), "ore", m.Carrying)
			m.Carrying = 0
			tc.Add(e, Fatigue{Level: 3})
			*v = Velocity{}
			return true
		}
		if !ok {
			*v = Velocity{}
			return true
		}

		if distance2(*p, targetPos) <= extractRange2 {
			dep := deposits.GetMut(target)
			if dep == nil {
				return true
			}
			n := prof.Efficiency
			if room := prof.Capacity - m.Carrying; n > room {
				n = room
			}
			if n > dep.Ore {
				n = dep.Ore
			}
			m.Carrying += n
			dep.Ore -= n
			if dep.Ore <= 0 {
				tc.Logger().Info("deposit exhausted", "deposit", target.String())
				tc.Destroy(target)
			}
			*v = Velocity{}
			return true
		}

		*v = stepToward(*p, targetPos)
		return true
	})
}

// nearestDeposit scans for the deposit closest to from, skipping
// exhausted ones awaiting destruction.
func nearestDeposit(positions ecs.Store[Position], deposits ecs.Store[Deposit], from Position) (ecs.Entity, Position, bool) {
	var (
		found      bool
		nearest    ecs.Entity
		nearestPos Position
		best       float64
	)
	deposits.Iterate(func(e ecs.Entity, d *Deposit) bool {
		if d.Ore <= 0 {
			return true
		}
		p, ok := positions.Get(e)
		if !ok {
			return true
		}
		dist := distance2(from, p)
		if !found || dist < best {
			found = true
			nearest = e
			nearestPos = p
			best = dist
		}
		return true
	})
	return nearest, nearestPos, found
}

func mustStore[T any](w *ecs.World) ecs.Store[T] {
	st, err := ecs.StoreFor[T](w)
	if err != nil {
		panic(err)
	}
	return st
}
