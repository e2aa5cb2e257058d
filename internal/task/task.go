// Package task provides the one-shot asynchronous result and the
// pending gate used by long-running storefront operations (checkout,
// advisor turns).
package task

import (
	"context"
	"sync"
)

// Status is the lifecycle state of a gated operation.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Task is a single asynchronous result. It is resolved exactly once;
// later calls to Resolve are ignored.
type Task[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// New returns an unresolved task.
func New[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a task resolved with its result.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := New[T]()
	go func() {
		t.Resolve(fn())
	}()
	return t
}

// Resolve sets the result and releases all waiters.
func (t *Task[T]) Resolve(v T, err error) {
	t.once.Do(func() {
		t.val = v
		t.err = err
		close(t.done)
	})
}

// Done is closed once the task is resolved.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task resolves or ctx is done. Cancelling ctx
// stops the wait only; the underlying operation keeps running.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the resolved value and whether the task has resolved.
func (t *Task[T]) Result() (T, error, bool) {
	select {
	case <-t.done:
		return t.val, t.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Gate serializes an operation: at most one may be pending at a time.
type Gate struct {
	mu     sync.Mutex
	status Status
}

// Begin moves the gate to pending. It reports false, leaving the gate
// untouched, when an operation is already pending.
func (g *Gate) Begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == StatusPending {
		return false
	}
	g.status = StatusPending
	return true
}

// Finish records the outcome of the pending operation.
func (g *Gate) Finish(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ok {
		g.status = StatusSucceeded
	} else {
		g.status = StatusFailed
	}
}

// Status returns the current state. The zero Gate is idle.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == "" {
		return StatusIdle
	}
	return g.status
}

// Pending reports whether an operation is in flight.
func (g *Gate) Pending() bool {
	return g.Status() == StatusPending
}

// Reset returns the gate to idle.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = StatusIdle
}
