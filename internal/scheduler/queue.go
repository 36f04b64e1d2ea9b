package scheduler

import (
	"container/heap"
	"context"
	"time"
)

// Ensure taskHeap implements [heap.Interface].
var _ heap.Interface = (*taskHeap[any])(nil)

// Operation is the unit of work a caller submits. The scheduler never
// inspects what the operation does; it only observes the returned error
// to classify the task as completed or failed. The context carries the
// task's deadline and is cancelled when the timeout supervisor fires.
type Operation[T any] func(ctx context.Context) (T, error)

// task is one submitted unit of work while it waits in the queue.
type task[T any] struct {
	op        Operation[T]
	priority  int
	timeout   time.Duration
	seqNo     int64
	enqueueAt time.Time
	future    *Future[T]

	// index is the task's position in the heap, -1 once removed.
	index int
}

// taskHeap orders waiting tasks by priority descending; among equal
// priorities, by sequence number ascending, so submission order is a
// stable tie-break.
type taskHeap[T any] []*task[T]

func (h taskHeap[T]) Len() int { return len(h) }

// Less reports whether the task at i should be admitted before the task
// at j. It is without side effects and may be called directly.
func (h taskHeap[T]) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seqNo < b.seqNo
}

func (h taskHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

// Push adds a task. Used by the heap machinery; callers go through
// Scheduler.Submit.
func (h *taskHeap[T]) Push(x any) {
	t := x.(*task[T])
	t.index = len(*h)
	*h = append(*h, t)
}

// Pop removes and returns the last task. Used by the heap machinery;
// combined with heap.Pop it yields the highest-priority task.
func (h *taskHeap[T]) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil  // avoid memory leak
	t.index = -1    // for safety
	*h = old[0 : n-1]
	return t
}
