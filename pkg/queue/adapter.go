// Package queue provides the pluggable compute-task adapter. Handlers hand
// CPU-bound work to an Adapter instead of blocking the request path; the
// lifecycle manager selects the variant from configuration.
package queue

import (
	"context"
	"errors"
)

// ErrNoAdapter is returned by the none variant: the server was started
// without a local manager and cannot execute computation.
var ErrNoAdapter = errors.New("no compute adapter configured, start the server with --local-manager")

// ErrShuttingDown is returned for submissions after shutdown has begun.
var ErrShuttingDown = errors.New("compute adapter is shutting down")

// Task is one unit of computation.
type Task struct {
	// ID tags the task; generated when empty.
	ID string

	// Tag groups related tasks for bookkeeping.
	Tag string

	// Fn performs the computation. It must honor ctx cancellation.
	Fn func(ctx context.Context) (any, error)
}

// Result is the outcome of one task.
type Result struct {
	Value any
	Err   error
}

// Handle tracks a submitted task. Done receives exactly one Result.
type Handle struct {
	ID   string
	Done <-chan Result
}

// Adapter is the compute capability boundary. Variants are selected by
// configuration, never by type inspection at the call site.
type Adapter interface {
	// Submit queues a task for execution.
	Submit(ctx context.Context, task Task) (*Handle, error)

	// Shutdown drains in-flight work. Idempotent.
	Shutdown(ctx context.Context) error
}

// New selects the adapter for a local-manager worker count: 0 means no
// adapter, -1 is the unbounded sentinel (sized to the machine), anything
// else bounds the pool.
func New(workers int) Adapter {
	if workers == 0 {
		return None{}
	}
	return NewPool(workers)
}
