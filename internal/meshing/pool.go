// Package meshing prepares CPU-side geometry on a worker pool so the render
// thread only has to upload.
package meshing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sigma-render/internal/profiling"
)

// Preparer is implemented by renderables whose vertex data can be built
// away from the thread that owns the GPU context. Prepare must not call
// the backend.
type Preparer interface {
	Prepare() error
}

// Job is one preparation request
type Job struct {
	ID     int
	Target Preparer
}

// Result reports a finished Job
type Result struct {
	ID  int
	Err error
}

// WorkerPool manages goroutines for geometry preparation
type WorkerPool struct {
	jobQueue chan Job
	results  chan Result
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool starts workers goroutines. Results are buffered up to
// queueSize; a consumer must drain Results for larger batches.
func NewWorkerPool(ctx context.Context, workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		jobQueue: make(chan Job, queueSize),
		results:  make(chan Result, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}
	for range workers {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

// SubmitJob queues a job without blocking.
// Returns false if the queue is full.
func (p *WorkerPool) SubmitJob(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitJobBlocking waits for queue space. Returns false if the pool was
// cancelled first.
func (p *WorkerPool) SubmitJobBlocking(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Results delivers one Result per completed job, in completion order.
func (p *WorkerPool) Results() <-chan Result { return p.results }

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			stop := profiling.Track("meshing.prepare")
			err := job.Target.Prepare()
			stop()

			select {
			case p.results <- Result{ID: job.ID, Err: err}:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers and waits for them. Jobs still queued are
// dropped. The pool must not be submitted to afterwards.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
}

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}

// PrepareAll runs Prepare on every item using up to workers goroutines.
// All items run even if some fail; the errors are joined in item order.
func PrepareAll(ctx context.Context, workers int, items []Preparer) error {
	if len(items) == 0 {
		return nil
	}
	workers = min(max(workers, 1), len(items))

	pool := NewWorkerPool(ctx, workers, len(items))
	defer pool.Shutdown()
	for i, it := range items {
		pool.SubmitJob(Job{ID: i, Target: it})
	}

	errs := make([]error, len(items))
	for range items {
		select {
		case r := <-pool.Results():
			if r.Err != nil {
				errs[r.ID] = fmt.Errorf("prepare %d: %w", r.ID, r.Err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Join(errs...)
}
