package queue

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/molsci/fractal/internal/logger"
)

// Pool is the in-process bounded worker pool variant. Workers run in
// parallel to the server loop; the loop thread only ever submits and
// collects.
type Pool struct {
	workers int
	tasks   chan poolTask

	// runCtx is handed to every task function; cancelled when Shutdown
	// gives up waiting, so running tasks can observe the drain deadline.
	runCtx context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	submitters sync.WaitGroup // in-flight Submit calls; Shutdown waits before closing intake

	wg sync.WaitGroup
}

type poolTask struct {
	task Task
	done chan Result
}

// NewPool starts a pool with the given worker count. The -1 sentinel maps
// to one worker per core.
func NewPool(workers int) *Pool {
	if workers < 0 {
		workers = runtime.NumCPU()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers: workers,
		tasks:   make(chan poolTask, workers*2),
		runCtx:  runCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	logger.Debug("Compute pool started", "workers", workers)
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit queues a task. Blocks while the intake buffer is full so the pool
// stays bounded; fails with ErrShuttingDown once Shutdown has begun.
func (p *Pool) Submit(ctx context.Context, task Task) (*Handle, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrShuttingDown
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	done := make(chan Result, 1)
	select {
	case p.tasks <- poolTask{task: task, done: done}:
		return &Handle{ID: task.ID, Done: done}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops intake and waits for queued work to drain. When ctx
// expires first, the pool's run context is cancelled so task functions
// observe the deadline. Idempotent.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.submitters.Wait()
		close(p.tasks)
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		logger.Debug("Compute pool drained")
		p.cancel()
		return nil
	case <-ctx.Done():
		// The drain deadline passed; cancel the run context so blocked
		// task functions can bail out.
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for pt := range p.tasks {
		value, err := pt.task.Fn(p.runCtx)
		pt.done <- Result{Value: value, Err: err}
	}
}
