// Package scheduler provides the bounded worker pool that meshing and
// upsampling tasks run on.
package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task is a unit of work executed on the pool.
type Task func() (any, error)

// Scheduler dispatches tasks without blocking the caller. TrySubmit reports
// false when no capacity is available; the caller is expected to retry
// later. SubmitNow bypasses the capacity limit for priority work.
type Scheduler interface {
	TrySubmit(t Task) (*Future, bool)
	SubmitNow(t Task) *Future
}

// Future is the pending result of a dispatched task. A task runs to
// completion once dispatched; there is no cancellation. An unwanted result
// may simply be discarded.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done is closed when the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task has finished and returns its result.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.value, f.err
}

// complete publishes the result and unblocks waiters.
func (f *Future) complete(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Completed returns an already-finished future, for results that are known
// synchronously.
func Completed(value any, err error) *Future {
	f := newFuture()
	f.complete(value, err)
	return f
}

// Pool bounds the number of concurrently running tasks. There is no
// internal queue: a submission either claims a free slot immediately or is
// rejected, and backpressure is entirely caller-driven retry.
type Pool struct {
	slots  chan struct{}
	log    *zap.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewPool creates a pool running at most workers tasks at once. workers
// must be at least 1.
func NewPool(workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		slots: make(chan struct{}, workers),
		log:   log,
	}
}

// TrySubmit starts the task if a slot is free. It never blocks: when every
// slot is taken it returns (nil, false) and the task is not retained. The
// slot is released before the future completes, so a caller observing
// completion may submit again immediately.
func (p *Pool) TrySubmit(t Task) (*Future, bool) {
	if p.closed.Load() {
		return nil, false
	}
	select {
	case p.slots <- struct{}{}:
	default:
		return nil, false
	}

	f := newFuture()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		value, err := p.run(t)
		<-p.slots
		f.complete(value, err)
	}()
	return f, true
}

// SubmitNow runs the task immediately, outside the slot limit.
func (p *Pool) SubmitNow(t Task) *Future {
	f := newFuture()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		f.complete(p.run(t))
	}()
	return f
}

// run executes the task, converting a panic into an error.
func (p *Pool) run(t Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task panicked", zap.Any("panic", r))
			value, err = nil, fmt.Errorf("task panic: %v", r)
		}
	}()
	return t()
}

// Close rejects further submissions and waits for in-flight tasks to
// finish.
func (p *Pool) Close() {
	p.closed.Store(true)
	p.wg.Wait()
}
