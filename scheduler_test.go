package ecs_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ashkettle/ecs"
	"github.com/ashkettle/ecs/storage"
)

type counter struct {
	Value int32
}

type flag struct {
	On bool
}

type SchedulerSuite struct {
	suite.Suite
	world     *ecs.World
	scheduler *ecs.Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.world = ecs.NewWorld()
	s.Require().NoError(ecs.Register[counter](s.world, storage.NewDense[counter]))
	s.Require().NoError(ecs.Register[flag](s.world, storage.NewSparse[flag]))
	s.scheduler = ecs.NewScheduler(s.world, 4)
}

func (s *SchedulerSuite) TearDownTest() {
	s.scheduler.Close()
}

func (s *SchedulerSuite) TestWriteReadBatchLoop() {
	e, err := s.world.CreateEntity().With(counter{}).With(flag{}).Build()
	s.Require().NoError(err)

	var torn atomic.Int32
	for i := 0; i < 100; i++ {
		iter := int32(i)
		ecs.Run1W1R[counter, flag](s.scheduler, func(_ ecs.Entity, c *counter, _ *flag) {
			c.Value++
		})
		ecs.Run0W2R[counter, flag](s.scheduler, func(_ ecs.Entity, c *counter, _ *flag) {
			// The writer holds an exclusive borrow, so a reader in the
			// same batch sees either the old or the new value, never a
			// half-applied one.
			if v := c.Value; v != iter && v != iter+1 {
				torn.Add(1)
			}
		})
		s.Require().NoError(s.scheduler.Wait())
	}

	s.Zero(torn.Load(), "readers observed values no batch could produce")
	counters, err := ecs.StoreFor[counter](s.world)
	s.Require().NoError(err)
	got, ok := counters.Get(e)
	s.Require().True(ok)
	s.Equal(int32(100), got.Value)
}

func (s *SchedulerSuite) TestReadersShareTheBorrow() {
	_, err := s.world.CreateEntity().With(counter{Value: 1}).Build()
	s.Require().NoError(err)

	var active atomic.Int32
	var overlapped atomic.Bool
	reader := func(ecs.Entity, *counter) {
		if active.Add(1) == 2 {
			overlapped.Store(true)
		}
		time.Sleep(25 * time.Millisecond)
		active.Add(-1)
	}
	ecs.Run0W1R[counter](s.scheduler, reader)
	ecs.Run0W1R[counter](s.scheduler, reader)
	s.Require().NoError(s.scheduler.Wait())

	s.True(overlapped.Load(), "two readers should hold the borrow together")
}

func (s *SchedulerSuite) TestWriterExcludesOtherTasks() {
	for i := 0; i < 64; i++ {
		_, err := s.world.CreateEntity().With(counter{}).Build()
		s.Require().NoError(err)
	}

	var inWriter atomic.Bool
	var violations atomic.Int32
	ecs.Run1W0R[counter](s.scheduler, func(_ ecs.Entity, c *counter) {
		inWriter.Store(true)
		c.Value++
		inWriter.Store(false)
	})
	ecs.Run0W1R[counter](s.scheduler, func(ecs.Entity, *counter) {
		if inWriter.Load() {
			violations.Add(1)
		}
	})
	s.Require().NoError(s.scheduler.Wait())
	s.Zero(violations.Load(), "reader ran while the writer held its borrow")
}

func (s *SchedulerSuite) TestJoinSkipsEntitiesMissingComponents() {
	both, err := s.world.CreateEntity().With(counter{}).With(flag{}).Build()
	s.Require().NoError(err)
	_, err = s.world.CreateEntity().With(counter{}).Build()
	s.Require().NoError(err)

	var seen []ecs.Entity
	ecs.Run1W1R[counter, flag](s.scheduler, func(e ecs.Entity, _ *counter, _ *flag) {
		seen = append(seen, e)
	})
	s.Require().NoError(s.scheduler.Wait())
	s.Equal([]ecs.Entity{both}, seen)
}

func (s *SchedulerSuite) TestTaskPanicResurfacesAtWait() {
	_, err := s.world.CreateEntity().With(counter{}).Build()
	s.Require().NoError(err)

	ecs.Run1W0R[counter](s.scheduler, func(ecs.Entity, *counter) {
		panic("exploded")
	})

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_ = s.scheduler.Wait()
	}()

	s.Require().NotNil(recovered, "Wait must re-raise the task panic")
	tp, ok := recovered.(ecs.TaskPanic)
	s.Require().True(ok, "panic value should be a TaskPanic, got %T", recovered)
	s.Equal("exploded", tp.Value)
	s.NotEmpty(tp.Stack)
	s.Contains(tp.Task, "1w0r")

	// The scheduler stays usable after a panicked batch.
	var ran atomic.Bool
	ecs.Run0W1R[counter](s.scheduler, func(ecs.Entity, *counter) {
		ran.Store(true)
	})
	s.Require().NoError(s.scheduler.Wait())
	s.True(ran.Load())
}

func (s *SchedulerSuite) TestPanickedTaskCommandsAreDropped() {
	e, err := s.world.CreateEntity().With(counter{}).Build()
	s.Require().NoError(err)

	s.scheduler.Run(func(tc *ecs.TaskContext) {
		tc.Add(e, flag{On: true})
		panic("after queueing")
	})

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_ = s.scheduler.Wait()
	}()
	s.Require().NotNil(recovered)

	flags, err := ecs.StoreFor[flag](s.world)
	s.Require().NoError(err)
	_, ok := flags.Get(e)
	s.False(ok, "commands queued by a panicked task must not apply")
}

func (s *SchedulerSuite) TestDeferredMutationsApplyAtWait() {
	e, err := s.world.CreateEntity().With(counter{Value: 7}).Build()
	s.Require().NoError(err)

	var visibleDuringTask bool
	s.scheduler.Run(func(tc *ecs.TaskContext) {
		tc.Add(e, flag{On: true})
		tc.Remove(e, counter{})
		flags, ferr := ecs.StoreFor[flag](tc.World())
		if ferr == nil {
			_, visibleDuringTask = flags.Get(e)
		}
	})
	s.Require().NoError(s.scheduler.Wait())

	s.False(visibleDuringTask, "adds stay invisible until the batch ends")
	flags, _ := ecs.StoreFor[flag](s.world)
	got, ok := flags.Get(e)
	s.Require().True(ok)
	s.True(got.On)
	counters, _ := ecs.StoreFor[counter](s.world)
	_, ok = counters.Get(e)
	s.False(ok, "deferred removes apply at Wait")
}

func (s *SchedulerSuite) TestDynamicCreate() {
	for i := 0; i < 1000; i++ {
		s.scheduler.Run(func(tc *ecs.TaskContext) {
			e := tc.Create()
			tc.Add(e, counter{Value: 1})
		})
		s.Require().NoError(s.scheduler.Wait())
	}

	s.Equal(1000, s.world.Allocator().Count())
	counters, err := ecs.StoreFor[counter](s.world)
	s.Require().NoError(err)
	s.Equal(1000, counters.Len())
}

func (s *SchedulerSuite) TestDynamicCreateAndDestroy() {
	var latest ecs.Entity
	for i := 0; i < 1000; i++ {
		s.scheduler.Run(func(tc *ecs.TaskContext) {
			if !latest.IsZero() {
				tc.Destroy(latest)
			}
			latest = tc.Create()
		})
		s.Require().NoError(s.scheduler.Wait())
	}

	s.Equal(1, s.world.Allocator().Count())
	s.True(s.world.Allocator().IsAlive(latest))
}

func (s *SchedulerSuite) TestCreatedHandleUsableInLaterBatch() {
	var e ecs.Entity
	s.scheduler.Run(func(tc *ecs.TaskContext) {
		e = tc.Create()
	})
	s.Require().NoError(s.scheduler.Wait())
	s.Require().True(s.world.Allocator().IsAlive(e))

	s.scheduler.Run(func(tc *ecs.TaskContext) {
		tc.Add(e, counter{Value: 3})
	})
	s.Require().NoError(s.scheduler.Wait())

	counters, _ := ecs.StoreFor[counter](s.world)
	got, ok := counters.Get(e)
	s.Require().True(ok)
	s.Equal(int32(3), got.Value)
}

func (s *SchedulerSuite) TestWaitReportsCommandFailures() {
	e, err := s.world.CreateEntity().Build()
	s.Require().NoError(err)

	s.scheduler.Run(func(tc *ecs.TaskContext) {
		tc.Add(e, mana{Points: 1}) // never registered
		tc.Add(e, counter{Value: 2})
	})
	err = s.scheduler.Wait()
	s.Require().ErrorIs(err, ecs.ErrComponentNotRegistered)

	counters, _ := ecs.StoreFor[counter](s.world)
	_, ok := counters.Get(e)
	s.True(ok, "commands after the failing one still apply")
}

func (s *SchedulerSuite) TestSubmitUnregisteredComponentPanics() {
	s.Panics(func() {
		ecs.Run0W1R[mana](s.scheduler, func(ecs.Entity, *mana) {})
	})
}

func (s *SchedulerSuite) TestSubmitAfterClosePanics() {
	s.scheduler.Close()
	s.Panics(func() {
		s.scheduler.Run(func(*ecs.TaskContext) {})
	})
}

func (s *SchedulerSuite) TestResourcesReachTasks() {
	s.world.Resources().Set("tick", 42)
	var got int
	var ok bool
	s.scheduler.Run(func(tc *ecs.TaskContext) {
		got, ok = ecs.GetResource[int](tc.Resources(), "tick")
	})
	s.Require().NoError(s.scheduler.Wait())
	s.Require().True(ok)
	s.Equal(42, got)
}

func TestNewSchedulerDefaults(t *testing.T) {
	s := ecs.NewScheduler(nil, 0)
	defer s.Close()

	require.NotNil(t, s.World(), "a nil world is replaced with a fresh one")
	assert.GreaterOrEqual(t, s.Workers(), 1)
}

func TestSchedulerWaitWithoutTasks(t *testing.T) {
	w := ecs.NewWorld()
	s := ecs.NewScheduler(w, 2)
	defer s.Close()

	require.NoError(t, s.Wait())
	require.NoError(t, s.Wait())
}
