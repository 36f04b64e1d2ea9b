package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Defaults applied when Config fields are left zero or negative.
const (
	DefaultConcurrencyLimit = 5
	DefaultTaskTimeout      = 30 * time.Second
)

// Config holds construction-time settings for a Scheduler.
type Config struct {
	// ConcurrencyLimit caps the number of tasks executing at once.
	ConcurrencyLimit int

	// DefaultTimeout bounds a task's execution when Options.Timeout
	// is not set.
	DefaultTimeout time.Duration
}

// Options are the per-submission settings.
type Options struct {
	// Priority orders waiting tasks; higher values are admitted first.
	// Equal priorities are admitted in submission order.
	Priority int

	// Timeout bounds this task's execution wall-clock time. Zero or
	// negative means the scheduler's default timeout.
	Timeout time.Duration
}

// Scheduler serializes submitted operations through a fixed number of
// concurrent slots, admitting the highest-priority waiting task whenever
// a slot frees. The queue and counters are the scheduler's only mutable
// state, guarded by a single mutex that is never held across a running
// operation.
type Scheduler[T any] struct {
	mu    sync.Mutex
	queue taskHeap[T]
	seqNo int64

	limit          int
	defaultTimeout time.Duration

	total     int64
	completed int64
	failed    int64
	running   int

	// idle tracks the running == 0 && pending == 0 condition; idleCh is
	// closed on every transition into idle and replaced on the way out.
	idle   bool
	idleCh chan struct{}

	logger *slog.Logger
}

// New creates a Scheduler with the given configuration. Non-positive
// configuration values fall back to package defaults with a warning.
// The scheduler starts idle and needs no explicit start or stop; to shut
// down, stop submitting and call WaitIdle.
func New[T any](cfg Config, logger *slog.Logger) *Scheduler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	if cfg.ConcurrencyLimit <= 0 {
		log.Warn("invalid concurrency limit, using default",
			"requested", cfg.ConcurrencyLimit,
			"default", DefaultConcurrencyLimit)
		cfg.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if cfg.DefaultTimeout <= 0 {
		log.Warn("invalid default timeout, using default",
			"requested", cfg.DefaultTimeout,
			"default", DefaultTaskTimeout)
		cfg.DefaultTimeout = DefaultTaskTimeout
	}

	idleCh := make(chan struct{})
	close(idleCh)

	s := &Scheduler[T]{
		queue:          make(taskHeap[T], 0),
		limit:          cfg.ConcurrencyLimit,
		defaultTimeout: cfg.DefaultTimeout,
		idle:           true,
		idleCh:         idleCh,
		logger:         log,
	}
	heap.Init(&s.queue)
	return s
}

// Submit enqueues an operation and returns its future. Submission never
// fails and the queue is unbounded; callers needing backpressure should
// watch Health. The concurrency gate runs before Submit returns, so a
// task submitted to a non-saturated scheduler starts immediately.
func (s *Scheduler[T]) Submit(op Operation[T], opts Options) *Future[T] {
	t := &task[T]{
		op:       op,
		priority: opts.Priority,
		timeout:  opts.Timeout,
		future:   newFuture[T](),
		index:    -1,
	}
	if t.timeout <= 0 {
		t.timeout = s.defaultTimeout
	}

	s.mu.Lock()
	t.seqNo = s.seqNo
	t.enqueueAt = time.Now()
	s.seqNo++
	s.total++
	heap.Push(&s.queue, t)
	s.markBusyLocked()
	s.dispatchLocked()
	s.mu.Unlock()

	s.logger.Debug("task submitted",
		"priority", t.priority,
		"timeout", t.timeout)

	return t.future
}

// Stats returns a snapshot of the counters, consistent at the instant of
// the call.
func (s *Scheduler[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Total:            s.total,
		Completed:        s.completed,
		Failed:           s.failed,
		Running:          s.running,
		Pending:          s.queue.Len(),
		ConcurrencyLimit: s.limit,
	}
}

// Health reports whether the backlog is within healthy bounds, along
// with advisory recommendations derived from the current counters.
func (s *Scheduler[T]) Health() HealthReport {
	return buildHealthReport(s.Stats())
}

// WaitIdle blocks until the scheduler has no running and no pending
// tasks, or until ctx is done, in which case it returns ErrDrainTimeout.
// New submissions after WaitIdle returns are the caller's concern; the
// idle condition held at the moment the wait resolved.
func (s *Scheduler[T]) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if s.idle {
		s.mu.Unlock()
		return nil
	}
	idleCh := s.idleCh
	s.mu.Unlock()

	select {
	case <-idleCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDrainTimeout, ctx.Err())
	}
}

// Clear atomically removes every queued task, failing each future with
// ErrQueueCleared, and returns how many were removed. Running tasks are
// unaffected. Cleared tasks count as failed so the counter identity
// holds.
func (s *Scheduler[T]) Clear() int {
	s.mu.Lock()
	cleared := make([]*task[T], 0, s.queue.Len())
	for s.queue.Len() > 0 {
		cleared = append(cleared, heap.Pop(&s.queue).(*task[T]))
	}
	s.failed += int64(len(cleared))
	s.dispatchLocked()
	s.mu.Unlock()

	var zero T
	for _, t := range cleared {
		t.future.settle(zero, ErrQueueCleared)
	}

	if len(cleared) > 0 {
		s.logger.Info("cleared queued tasks", "count", len(cleared))
	}
	return len(cleared)
}

// dispatchLocked admits queued tasks while slots are free, then refreshes
// the idle signal. It runs after every submission and every settlement,
// so the gate is a pure function of current state with no poller.
// Callers must hold s.mu.
func (s *Scheduler[T]) dispatchLocked() {
	for s.running < s.limit && s.queue.Len() > 0 {
		t := heap.Pop(&s.queue).(*task[T])
		s.running++
		go s.execute(t)
	}
	if s.running == 0 && s.queue.Len() == 0 {
		s.markIdleLocked()
	}
}

func (s *Scheduler[T]) markBusyLocked() {
	if s.idle {
		s.idle = false
		s.idleCh = make(chan struct{})
	}
}

func (s *Scheduler[T]) markIdleLocked() {
	if !s.idle {
		s.idle = true
		close(s.idleCh)
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// execute runs an admitted task under its timeout. The operation runs in
// its own goroutine so the supervisor can free the slot the moment the
// timer fires; the context cancellation is the only stop signal the
// operation receives.
func (s *Scheduler[T]) execute(t *task[T]) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome[T]{value: zero, err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		value, err := t.op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	var res outcome[T]
	select {
	case res = <-done:
	case <-ctx.Done():
		var zero T
		res = outcome[T]{value: zero, err: fmt.Errorf("%w: no result within %s", ErrTaskTimeout, t.timeout)}
		s.logger.Warn("task timed out",
			"timeout", t.timeout,
			"priority", t.priority,
			"queued_for", time.Since(t.enqueueAt))
	}

	s.settle(t, res)
}

// settle records a task's terminal state, re-runs the gate, and then
// delivers the result. Counters update before the future settles, so a
// caller that awaited the future observes the task already counted.
func (s *Scheduler[T]) settle(t *task[T], res outcome[T]) {
	s.mu.Lock()
	s.running--
	if res.err != nil {
		s.failed++
	} else {
		s.completed++
	}
	s.dispatchLocked()
	s.mu.Unlock()

	t.future.settle(res.value, res.err)
}
