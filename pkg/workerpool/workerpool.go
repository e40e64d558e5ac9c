// Package workerpool runs per-chunk encode, decode and store tasks on a
// bounded set of workers. Concurrency here is a performance property only;
// batches produce the same outcome regardless of completion order.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool executes submitted tasks on a fixed number of worker goroutines. The
// worker count caps the number of in-flight chunk tasks; submission blocks
// when the queue is full rather than failing.
type Pool struct {
	tasks     chan task
	workerWg  sync.WaitGroup
	closeOnce sync.Once
}

type task struct {
	run   func() error
	batch *Batch
}

// New creates a pool. A non-positive worker count defaults to three workers
// per CPU.
func New(workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU() * 3
	}
	p := &Pool{tasks: make(chan task, workers)}
	p.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for t := range p.tasks {
		if t.batch.cancelled.Load() {
			t.batch.wg.Done()
			continue
		}
		if err := t.run(); err != nil {
			t.batch.recordErr(err)
		}
		t.batch.wg.Done()
	}
}

// Close stops the workers after all queued tasks finish. No tasks may be
// submitted after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.workerWg.Wait()
	})
}

// Batch groups the tasks of one subset operation and collects the first
// error. After a task fails, not-yet-started siblings of the batch are
// skipped; already-running tasks complete.
type Batch struct {
	pool      *Pool
	wg        sync.WaitGroup
	errOnce   sync.Once
	err       error
	cancelled atomic.Bool
}

// NewBatch creates an empty batch on the pool.
func (p *Pool) NewBatch() *Batch {
	return &Batch{pool: p}
}

// Submit queues one task, blocking until a queue slot is free.
func (b *Batch) Submit(run func() error) {
	b.wg.Add(1)
	b.pool.tasks <- task{run: run, batch: b}
}

// Cancel skips all tasks of the batch that have not started yet.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

// Wait blocks until every submitted task has finished or been skipped and
// returns the first recorded error.
func (b *Batch) Wait() error {
	b.wg.Wait()
	return b.err
}

func (b *Batch) recordErr(err error) {
	b.errOnce.Do(func() {
		b.err = err
		b.cancelled.Store(true)
	})
}
