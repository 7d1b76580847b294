package ecs

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

// Scheduler fans tasks out over a fixed worker pool and rejoins them at
// Wait. Each task declares which component types it reads and writes;
// the scheduler turns those declarations into per-store borrow locks, so
// writers get exclusive access while readers of the same store run
// together. Structural mutations requested by tasks queue up and apply
// inside Wait, when no borrows are held.
type Scheduler struct {
	world    *World
	pool     *workerPool
	logger   Logger
	observer Observer
	bufPool  *CommandBufferPool

	tasks sync.WaitGroup

	mu         sync.Mutex
	pending    []Command
	panics     []TaskPanic
	batchTasks int
	batchStart time.Time
	closed     bool
}

// SchedulerOption customizes scheduler construction.
type SchedulerOption func(*Scheduler)

// WithObserver wires an observer into the scheduler's completion hooks.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewScheduler builds a scheduler over the world with a fixed worker
// pool. A non-positive worker count selects one worker per CPU. Register
// all component types before submitting tasks; submission resolves the
// declared types against the world and panics on unknown ones.
func NewScheduler(world *World, workers int, opts ...SchedulerOption) *Scheduler {
	if world == nil {
		world = NewWorld()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers <= 0 {
			workers = 1
		}
	}
	s := &Scheduler{
		world:    world,
		pool:     newWorkerPool(workers),
		logger:   world.logger,
		observer: nopObserver{},
		bufPool:  NewCommandBufferPool(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// World returns the world the scheduler runs against.
func (s *Scheduler) World() *World {
	return s.world
}

// Workers reports the size of the worker pool.
func (s *Scheduler) Workers() int {
	return s.pool.size
}

// Run submits a task with exclusive access to the whole world: every
// registered store is write-locked for its duration. The task context
// carries the deferred mutation surface; component access goes through
// the world directly.
func (s *Scheduler) Run(fn func(*TaskContext)) {
	if fn == nil {
		return
	}
	access := taskAccess{name: "exclusive", writes: s.world.storages.ordered()}
	s.submit(access, func(tc *TaskContext) int {
		fn(tc)
		return 0
	})
}

// Wait blocks until every submitted task has finished, applies the
// deferred commands they queued, publishes the batch summary and returns
// any command failures. If a task panicked, Wait re-raises the first
// captured panic as a TaskPanic after the batch is cleaned up; the rest
// are logged.
func (s *Scheduler) Wait() error {
	s.tasks.Wait()

	s.mu.Lock()
	commands := s.pending
	s.pending = nil
	panics := s.panics
	s.panics = nil
	ran := s.batchTasks
	s.batchTasks = 0
	start := s.batchStart
	s.mu.Unlock()

	if ran == 0 {
		return nil
	}

	var err error
	if len(commands) > 0 {
		err = s.world.ApplyCommands(commands)
		if err != nil {
			s.logger.Error("deferred commands failed", "err", err)
		}
	}

	s.observer.BatchCompleted(BatchSummary{
		Tasks:    ran,
		Panics:   len(panics),
		Commands: len(commands),
		Duration: time.Since(start),
		Err:      err,
	})

	if len(panics) > 0 {
		for _, extra := range panics[1:] {
			s.logger.Error("additional task panic suppressed", "task", extra.Task, "value", fmt.Sprint(extra.Value))
		}
		panic(panics[0])
	}
	return err
}

// Close shuts the scheduler down. It waits for outstanding tasks, so a
// batch in flight drains first; their deferred commands stay queued for a
// final Wait. Submitting after Close panics with ErrSchedulerClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.tasks.Wait()
	s.pool.Close()
}

// taskAccess is a task's resolved borrow declaration.
type taskAccess struct {
	name   string
	reads  []*storageCell
	writes []*storageCell
}

func (s *Scheduler) submit(access taskAccess, body func(*TaskContext) int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic(ErrSchedulerClosed)
	}
	if s.batchTasks == 0 {
		s.batchStart = time.Now()
	}
	s.batchTasks++
	s.mu.Unlock()

	s.tasks.Add(1)
	if !s.pool.Submit(func() { s.runTask(access, body) }) {
		s.tasks.Done()
		s.mu.Lock()
		s.batchTasks--
		s.mu.Unlock()
		panic(ErrWorkerPoolClosed)
	}
}

func (s *Scheduler) runTask(access taskAccess, body func(*TaskContext) int) {
	buf := s.bufPool.Get()
	tc := &TaskContext{world: s.world, buf: buf, logger: s.logger.With("task", access.name)}

	start := time.Now()
	summary := TaskSummary{
		Name:   access.name,
		Reads:  cellNames(access.reads),
		Writes: cellNames(access.writes),
	}

	defer s.tasks.Done()
	defer func() {
		summary.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			// A panicked task's queued commands are dropped with it.
			s.bufPool.Put(buf)
			summary.Panicked = true
			s.recordPanic(access.name, rec)
			s.observer.TaskCompleted(summary)
			return
		}
		commands := buf.Drain()
		s.bufPool.Put(buf)
		if len(commands) > 0 {
			s.mu.Lock()
			s.pending = append(s.pending, commands...)
			s.mu.Unlock()
		}
		s.observer.TaskCompleted(summary)
	}()

	unlock := lockCells(access.writes, access.reads)
	defer unlock()

	summary.Visited = body(tc)
}

func (s *Scheduler) recordPanic(task string, value any) {
	p := TaskPanic{Task: task, Value: value, Stack: debug.Stack()}
	s.mu.Lock()
	s.panics = append(s.panics, p)
	s.mu.Unlock()
	s.logger.Error("task panicked", "task", task, "value", fmt.Sprint(value))
}

// lockCells acquires the borrow locks for one task. Write locks subsume
// read locks on the same cell, and acquisition follows component-name
// order. Every task uses the same global order, so two tasks can never
// each hold a lock the other is waiting on.
func lockCells(writes, reads []*storageCell) (unlock func()) {
	type borrow struct {
		cell  *storageCell
		write bool
	}
	byName := make(map[string]*borrow, len(writes)+len(reads))
	for _, cell := range writes {
		byName[cell.name] = &borrow{cell: cell, write: true}
	}
	for _, cell := range reads {
		if _, ok := byName[cell.name]; !ok {
			byName[cell.name] = &borrow{cell: cell}
		}
	}

	ordered := make([]*borrow, 0, len(byName))
	for _, b := range byName {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].cell.name < ordered[j].cell.name })

	for _, b := range ordered {
		if b.write {
			b.cell.mu.Lock()
		} else {
			b.cell.mu.RLock()
		}
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			b := ordered[i]
			if b.write {
				b.cell.mu.Unlock()
			} else {
				b.cell.mu.RUnlock()
			}
		}
	}
}

// TaskPanic carries a panic captured inside a task to the caller of Wait,
// with the panicking task's name and stack attached.
type TaskPanic struct {
	Task  string
	Value any
	Stack []byte
}

func (p TaskPanic) Error() string {
	return fmt.Sprintf("ecs: task %s panicked: %v", p.Task, p.Value)
}

// TaskContext is handed to exclusive tasks submitted through Run. The
// task holds every storage borrow for its duration, so component access
// goes straight through the world; structural mutations queue here and
// apply when Wait runs.
type TaskContext struct {
	world  *World
	buf    *CommandBuffer
	logger Logger
}

// World returns the world the task runs against.
func (tc *TaskContext) World() *World {
	return tc.world
}

// Create allocates a fresh entity immediately, so the handle is usable
// right away, including inside deferred commands queued later in the same
// batch. Component writes against it still go through Add.
func (tc *TaskContext) Create() Entity {
	return tc.world.alloc.Create()
}

// Destroy queues the entity's destruction for the synchronization point.
func (tc *TaskContext) Destroy(e Entity) {
	tc.buf.Push(NewDestroyEntityCommand(e))
}

// Add queues a component write for the synchronization point. The
// component may be a value or a pointer to one.
func (tc *TaskContext) Add(e Entity, component any) {
	tc.buf.Push(NewAddComponentCommand(e, component))
}

// Remove queues a component removal for the synchronization point. Only
// the prototype's concrete type matters.
func (tc *TaskContext) Remove(e Entity, prototype any) {
	tc.buf.Push(NewRemoveComponentCommand(e, prototype))
}

// Defer queues an arbitrary command for the synchronization point.
func (tc *TaskContext) Defer(cmd Command) {
	tc.buf.Push(cmd)
}

// Resources exposes the world's shared resources.
func (tc *TaskContext) Resources() *Resources {
	return tc.world.resources
}

// Logger returns a logger scoped to this task.
func (tc *TaskContext) Logger() Logger {
	return tc.logger
}

func taskName(kind string, cells ...*storageCell) string {
	names := make([]string, len(cells))
	for i, cell := range cells {
		names[i] = cell.name
	}
	return kind + "[" + strings.Join(names, ",") + "]"
}

func cellNames(cells []*storageCell) []string {
	if len(cells) == 0 {
		return nil
	}
	names := make([]string, len(cells))
	for i, cell := range cells {
		names[i] = cell.name
	}
	return names
}

func mustResolve[T any](s *Scheduler) (Store[T], *storageCell) {
	st, cell, err := resolveStore[T](s.world)
	if err != nil {
		panic(err)
	}
	return st, cell
}
