package mining

import (
	"fmt"

	"github.com/ashkettle/ecs"
	"github.com/ashkettle/ecs/storage"
)

// StockpileResource is the resource name the colony's stockpile registers
// under.
const StockpileResource = "mining.stockpile"

// Colony wires a world and scheduler for the simulation and owns the step
// loop.
type Colony struct {
	world     *ecs.World
	scheduler *ecs.Scheduler
	stockpile *Stockpile
}

// NewColony builds an empty colony. Worker count and world options pass
// straight through to the scheduler and world.
func NewColony(workers int, opts ...ecs.WorldOption) (*Colony, error) {
	world := ecs.NewWorld(opts...)
	if err := ecs.Register[Position](world, storage.NewDense[Position]); err != nil {
		return nil, err
	}
	if err := ecs.Register[Velocity](world, storage.NewDense[Velocity]); err != nil {
		return nil, err
	}
	if err := ecs.Register[Miner](world, storage.NewDense[Miner]); err != nil {
		return nil, err
	}
	if err := ecs.Register[Profile](world, storage.NewShared[Profile]); err != nil {
		return nil, err
	}
	if err := ecs.Register[Deposit](world, storage.NewSparse[Deposit]); err != nil {
		return nil, err
	}
	if err := ecs.Register[Fatigue](world, storage.NewSparse[Fatigue]); err != nil {
		return nil, err
	}

	stockpile := &Stockpile{}
	world.Resources().Set(StockpileResource, stockpile)

	return &Colony{
		world:     world,
		scheduler: ecs.NewScheduler(world, workers),
		stockpile: stockpile,
	}, nil
}

// World exposes the underlying world.
func (c *Colony) World() *ecs.World {
	return c.world
}

// AddMiner spawns a worker with the given profile at a position.
func (c *Colony) AddMiner(profile Profile, at Position) (ecs.Entity, error) {
	return c.world.CreateEntity().
		With(at).
		With(Velocity{}).
		With(Miner{}).
		With(profile).
		Build()
}

// AddDeposit spawns an ore deposit at a position.
func (c *Colony) AddDeposit(ore int, at Position) (ecs.Entity, error) {
	if ore <= 0 {
		return 0, fmt.Errorf("mining: deposit needs positive ore, got %d", ore)
	}
	return c.world.CreateEntity().
		With(at).
		With(Deposit{Ore: ore}).
		Build()
}

// Step advances the simulation once: movement and rest run in parallel,
// then the exclusive planning task assigns the next round of work.
func (c *Colony) Step() error {
	ecs.Run1W1R[Position, Velocity](c.scheduler, Move)
	ecs.Run1W0R[Fatigue](c.scheduler, Rest)
	if err := c.scheduler.Wait(); err != nil {
		return err
	}

	c.scheduler.Run(Plan)
	return c.scheduler.Wait()
}

// Run advances the simulation the given number of steps.
func (c *Colony) Run(steps int) error {
	for i := 0; i < steps; i++ {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Stockpile reports the ore banked so far.
func (c *Colony) Stockpile() int {
	return c.stockpile.Ore
}

// ProfileStats reports how widely the worker profiles are shared.
func (c *Colony) ProfileStats() storage.SharedStats {
	profiles, err := ecs.StoreFor[Profile](c.world)
	if err != nil {
		return storage.SharedStats{}
	}
	return profiles.(*storage.Shared[Profile]).Stats()
}

// RemainingOre sums the ore still sitting in deposits.
func (c *Colony) RemainingOre() int {
	deposits, err := ecs.StoreFor[Deposit](c.world)
	if err != nil {
		return 0
	}
	total := 0
	deposits.Iterate(func(_ ecs.Entity, d *Deposit) bool {
		total += d.Ore
		return true
	})
	return total
}

// Close shuts the scheduler down.
func (c *Colony) Close() {
	c.scheduler.Close()
}
