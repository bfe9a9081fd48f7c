package http

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a cooperative scheduler. Each task is a goroutine, but a task only
// runs engine code while it holds the loop's baton, and it gives the baton up
// only inside Await. Tasks are therefore interleaved, never simultaneous.
//
// There is no preemption: a task that never awaits keeps every other task on
// the loop waiting.
type Loop struct {
	baton chan struct{}
	tasks sync.WaitGroup
}

func NewLoop() *Loop {
	return &Loop{
		baton: make(chan struct{}, 1),
	}
}

type loopKey struct{}

// task is the per-task record a loop context carries. suspended is set while
// the task is inside Await and has given up the baton.
type task struct {
	loop      *Loop
	suspended atomic.Bool
}

func taskFrom(ctx context.Context) *task {
	t, _ := ctx.Value(loopKey{}).(*task)
	return t
}

func (loop *Loop) acquire() {
	loop.baton <- struct{}{}
}

func (loop *Loop) release() {
	<-loop.baton
}

// Go starts fn as a new task. fn receives a context bound to the task, which
// Await and Sleep use to suspend it.
func (loop *Loop) Go(ctx context.Context, fn func(ctx context.Context)) {
	loop.tasks.Add(1)
	go func() {
		defer loop.tasks.Done()

		loop.acquire()
		defer loop.release()

		fn(context.WithValue(ctx, loopKey{}, &task{loop: loop}))
	}()
}

// Wait blocks until every task started with Go has returned.
func (loop *Loop) Wait() {
	loop.tasks.Wait()
}

// Detach returns a ctx that no longer belongs to a loop task, for work handed
// off to a goroutine outside the loop.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, loopKey{}, (*task)(nil))
}

// Await runs the blocking call fn. When ctx belongs to a loop task the task
// is suspended for the duration of fn, letting other tasks run; otherwise fn
// simply runs. Nested calls made while the task is already suspended run fn
// directly, since the baton is no longer the task's to give up.
func Await(ctx context.Context, fn func() error) error {
	t := taskFrom(ctx)
	if t == nil || !t.suspended.CompareAndSwap(false, true) {
		return fn()
	}

	t.loop.release()
	defer func() {
		t.loop.acquire()
		t.suspended.Store(false)
	}()

	return fn()
}

// Sleep pauses for d, suspending the task when called from one.
func Sleep(ctx context.Context, d time.Duration) error {
	return Await(ctx, func() error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
