// Package mining demonstrates the storage and scheduling API on a small
// colony simulation: miners walk to ore deposits, extract ore until they
// are full or the deposit is gone, deliver their load to the stockpile
// and rest off the fatigue afterwards.
//
// The component set shows each storage strategy in its natural place:
// components every entity carries live in dense stores, minority and
// transient components live in sparse stores, and the worker profiles
// every miner of a kind has in common live in a shared store.
package mining

import "math"

// Position is carried by every entity in the colony. Dense storage.
type Position struct {
	X, Y float64
}

// Velocity is the per-step displacement applied by the move task. Dense
// storage; miners that idle keep a zero velocity.
type Velocity struct {
	DX, DY float64
}

// Miner holds a worker's load state, the part that changes every step.
// Dense storage.
type Miner struct {
	Carrying int
}

// Profile is a worker's fixed traits. Every hand miner shares one
// Profile value and every drill miner another, so shared storage keeps
// one box per kind regardless of the workforce size.
type Profile struct {
	Capacity   int
	Efficiency int
}

// Deposit marks an entity as a mineable ore deposit. Deposits are a small
// minority of the population, so sparse storage fits.
type Deposit struct {
	Ore int
}

// Fatigue appears on a miner after a delivery and decays one level per
// step; a fatigued miner stands still. Sparse storage, since it comes and
// goes.
type Fatigue struct {
	Level int
}

// Stockpile is the colony's shared ore account, registered as a world
// resource. Only the exclusive planning task writes it.
type Stockpile struct {
	Ore int
}

// Worker profiles used when populating a colony.
var (
	HandMiner = Profile{Capacity: 10, Efficiency: 1}

	DrillMiner = Profile{Capacity: 40, Efficiency: 5}
)

// distance2 returns the squared distance between two positions.
func distance2(a, b Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// stepToward returns a unit-length velocity pointing from a to b, or zero
// when the points coincide.
func stepToward(a, b Position) Velocity {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return Velocity{}
	}
	return Velocity{DX: dx / length, DY: dy / length}
}
