package scheduler

import (
	"context"
	"sync"
)

// Future is the caller's handle on a submitted task's eventual result.
// It is settled exactly once, with either the operation's value or the
// terminal error (the operation's own failure, ErrTaskTimeout, or
// ErrQueueCleared).
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// settle records the result and wakes all waiters. Later calls are
// no-ops, which is what discards the late result of a timed-out
// operation.
func (f *Future[T]) settle(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error. It must only be called
// after Done is closed; before that it returns the zero value and nil.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, nil
	}
}

// Wait blocks until the future settles or ctx is done. A ctx error
// abandons the wait only; the task keeps running and the future can
// still be awaited again.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
