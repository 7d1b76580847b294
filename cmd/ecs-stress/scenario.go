package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/ashkettle/ecs"
	"github.com/ashkettle/ecs/storage"
)

// Scenario describes one stress run.
type Scenario struct {
	Entities     int     `yaml:"entities"`
	Batches      int     `yaml:"batches"`
	Workers      int     `yaml:"workers"`
	ChurnRate    float64 `yaml:"churnRate"`
	BurningRatio float64 `yaml:"burningRatio"`
	Seed         int64   `yaml:"seed"`
}

// DefaultScenario returns the baked-in workload: a mid-sized population
// with light churn.
func DefaultScenario() Scenario {
	return Scenario{
		Entities:     10000,
		Batches:      100,
		Workers:      4,
		ChurnRate:    0.02,
		BurningRatio: 0.1,
		Seed:         1,
	}
}

// LoadScenario reads a YAML scenario file over the defaults and validates
// the result.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	scenario := DefaultScenario()
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return scenario, scenario.Validate()
}

// Validate rejects configurations the simulation cannot run.
func (s Scenario) Validate() error {
	if s.Entities <= 0 {
		return fmt.Errorf("scenario: entities must be positive, got %d", s.Entities)
	}
	if s.Batches <= 0 {
		return fmt.Errorf("scenario: batches must be positive, got %d", s.Batches)
	}
	if s.ChurnRate < 0 || s.ChurnRate > 1 {
		return fmt.Errorf("scenario: churnRate must be within [0, 1], got %g", s.ChurnRate)
	}
	if s.BurningRatio < 0 || s.BurningRatio > 1 {
		return fmt.Errorf("scenario: burningRatio must be within [0, 1], got %g", s.BurningRatio)
	}
	return nil
}

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

type burning struct {
	Remaining int32
}

// simulation runs a scenario's batches against one world. Every batch
// schedules the movement and burn tasks in parallel, synchronizes, then
// runs a churn task that retires and respawns part of the population.
type simulation struct {
	scenario  Scenario
	world     *ecs.World
	scheduler *ecs.Scheduler
	rng       *rand.Rand
	entities  []ecs.Entity
	checksum  atomic.Int64
}

func newSimulation(scenario Scenario, logger ecs.Logger, observer ecs.Observer) (*simulation, error) {
	world := ecs.NewWorld(ecs.WithLogger(logger))
	if err := ecs.Register[position](world, storage.NewDense[position]); err != nil {
		return nil, err
	}
	if err := ecs.Register[velocity](world, storage.NewDense[velocity]); err != nil {
		return nil, err
	}
	if err := ecs.Register[burning](world, storage.NewSparse[burning]); err != nil {
		return nil, err
	}

	sim := &simulation{
		scenario:  scenario,
		world:     world,
		scheduler: ecs.NewScheduler(world, scenario.Workers, ecs.WithObserver(observer)),
		rng:       rand.New(rand.NewSource(scenario.Seed)),
		entities:  make([]ecs.Entity, 0, scenario.Entities),
	}
	for i := 0; i < scenario.Entities; i++ {
		e, err := sim.spawn()
		if err != nil {
			sim.Close()
			return nil, err
		}
		sim.entities = append(sim.entities, e)
	}
	return sim, nil
}

func (s *simulation) spawn() (ecs.Entity, error) {
	builder := s.world.CreateEntity().
		With(position{X: s.rng.Float64() * 1000, Y: s.rng.Float64() * 1000}).
		With(velocity{DX: s.rng.Float64()*2 - 1, DY: s.rng.Float64()*2 - 1})
	if s.rng.Float64() < s.scenario.BurningRatio {
		builder = builder.With(burning{Remaining: int32(s.rng.Intn(20) + 1)})
	}
	return builder.Build()
}

// RunBatches drives the configured number of batches, checking ctx
// between them.
func (s *simulation) RunBatches(ctx context.Context) error {
	for batch := 0; batch < s.scenario.Batches; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ecs.Run1W1R[position, velocity](s.scheduler, integrate)
		ecs.Run1W0R[velocity](s.scheduler, damp)
		ecs.Run1W0R[burning](s.scheduler, burnDown)
		ecs.Run0W2R[position, velocity](s.scheduler, s.observeChecksum)
		if err := s.scheduler.Wait(); err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}

		s.scheduler.Run(s.churn)
		if err := s.scheduler.Wait(); err != nil {
			return fmt.Errorf("batch %d churn: %w", batch, err)
		}
	}
	return nil
}

// Checksum folds every observed position into one number, so runs with
// the same seed can be compared across changes.
func (s *simulation) Checksum() int64 {
	return s.checksum.Load()
}

// Population reports the current number of live entities.
func (s *simulation) Population() int {
	return s.world.Allocator().Count()
}

// Close shuts the scheduler down.
func (s *simulation) Close() {
	s.scheduler.Close()
}

func integrate(_ ecs.Entity, p *position, v *velocity) {
	p.X += v.DX
	p.Y += v.DY
}

func damp(_ ecs.Entity, v *velocity) {
	v.DX *= 0.999
	v.DY *= 0.999
}

func burnDown(_ ecs.Entity, b *burning) {
	if b.Remaining > 0 {
		b.Remaining--
	}
}

func (s *simulation) observeChecksum(_ ecs.Entity, p *position, v *velocity) {
	s.checksum.Add(int64(p.X) + int64(p.Y) + int64(v.DX*100))
}

// churn runs with exclusive world access: it clears burnt-out components,
// destroys a random slice of the population and respawns replacements.
// The entity list is only touched here and between batches, so the
// surrounding Wait calls order every access.
func (s *simulation) churn(tc *ecs.TaskContext) {
	burningStore, err := ecs.StoreFor[burning](tc.World())
	if err != nil {
		panic(err)
	}
	var extinguished []ecs.Entity
	burningStore.Iterate(func(e ecs.Entity, b *burning) bool {
		if b.Remaining <= 0 {
			extinguished = append(extinguished, e)
		}
		return true
	})
	for _, e := range extinguished {
		tc.Remove(e, burning{})
	}

	victims := int(float64(len(s.entities)) * s.scenario.ChurnRate)
	for i := 0; i < victims && len(s.entities) > 0; i++ {
		idx := s.rng.Intn(len(s.entities))
		tc.Destroy(s.entities[idx])
		s.entities[idx] = s.entities[len(s.entities)-1]
		s.entities = s.entities[:len(s.entities)-1]
	}
	for i := 0; i < victims; i++ {
		e := tc.Create()
		tc.Add(e, position{X: s.rng.Float64() * 1000, Y: s.rng.Float64() * 1000})
		tc.Add(e, velocity{DX: s.rng.Float64()*2 - 1, DY: s.rng.Float64()*2 - 1})
		if s.rng.Float64() < s.scenario.BurningRatio {
			tc.Add(e, burning{Remaining: int32(s.rng.Intn(20) + 1)})
		}
		s.entities = append(s.entities, e)
	}
}
