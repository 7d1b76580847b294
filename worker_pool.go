package ecs

import "sync"

// workerPool runs scheduler tasks on a fixed set of goroutines. Jobs are
// plain closures; completion tracking and panic recovery belong to the
// scheduler wrapping, not the pool.
type workerPool struct {
	size   int
	jobs   chan func()
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	p := &workerPool{
		size:   size,
		jobs:   make(chan func()),
		closed: make(chan struct{}),
	}
	p.start()
	return p
}

func (p *workerPool) start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if job != nil {
				job()
			}
		case <-p.closed:
			return
		}
	}
}

// Submit hands a job to the pool, blocking until a worker accepts it. It
// reports false when the pool has closed.
func (p *workerPool) Submit(job func()) bool {
	if job == nil {
		return true
	}
	select {
	case <-p.closed:
		return false
	default:
	}
	return safeSendJob(p.jobs, job)
}

// Close stops the workers and waits for in-flight jobs to finish.
func (p *workerPool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}

// safeSendJob loses the race against Close gracefully: sending on the
// closed jobs channel panics, which becomes a rejection.
func safeSendJob(ch chan func(), job func()) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	ch <- job
	return true
}
