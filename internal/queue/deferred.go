// Package queue provides the deferred task runner and redis-backed job queues
// the pipeline hands its post-commit side effects to.
package queue

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Deferred runs submitted tasks outside the caller's await chain. Every task
// receives a context cancelled when the process shuts down; tasks are expected
// to treat that cancellation as a silent abort, not an error.
type Deferred struct {
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeferred creates a runner tied to process lifecycle.
func NewDeferred() *Deferred {
	ctx, cancel := context.WithCancel(context.Background())
	return &Deferred{base: ctx, cancel: cancel}
}

// Submit schedules task to run after the current call returns. Panics are
// contained; a task submitted after shutdown is dropped.
func (d *Deferred) Submit(task func(ctx context.Context)) {
	select {
	case <-d.base.Done():
		return
	default:
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in deferred task", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		task(d.base)
	}()
}

// Shutdown cancels the base context and waits for in-flight tasks, up to the
// deadline of ctx.
func (d *Deferred) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all in-flight tasks finish or the timeout elapses.
// Intended for tests.
func (d *Deferred) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
