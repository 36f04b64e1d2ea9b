package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(limit int, timeout time.Duration) *Scheduler[string] {
	return New[string](Config{ConcurrencyLimit: limit, DefaultTimeout: timeout}, testLogger())
}

// awaitValue waits for a future with a test-level deadline so a broken
// scheduler fails the test instead of hanging it.
func awaitValue(t *testing.T, fut *Future[string]) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	value, err := fut.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future never settled")
	return value, err
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	s := New[string](Config{}, testLogger())

	st := s.Stats()
	assert.Equal(t, DefaultConcurrencyLimit, st.ConcurrencyLimit)
	assert.Equal(t, DefaultTaskTimeout, s.defaultTimeout)
}

func TestSubmitRunsImmediatelyWhenSlotFree(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(2, time.Second)

	started := make(chan struct{})
	fut := s.Submit(func(ctx context.Context) (string, error) {
		close(started)
		return "done", nil
	}, Options{})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task was not admitted immediately")
	}

	value, err := awaitValue(t, fut)
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestConcurrencyLimitNeverExceeded(t *testing.T) {
	t.Parallel()

	const limit = 3
	const taskCount = 10

	s := newTestScheduler(limit, time.Second)

	var mu sync.Mutex
	var current, peak int

	futures := make([]*Future[string], 0, taskCount)
	for i := 0; i < taskCount; i++ {
		fut := s.Submit(func(ctx context.Context) (string, error) {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(50 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return "ok", nil
		}, Options{})
		futures = append(futures, fut)
	}

	for _, fut := range futures {
		_, err := awaitValue(t, fut)
		require.NoError(t, err)
	}

	mu.Lock()
	observedPeak := peak
	mu.Unlock()
	assert.LessOrEqual(t, observedPeak, limit, "more tasks ran concurrently than the gate allows")

	st := s.Stats()
	assert.Equal(t, int64(taskCount), st.Total)
	assert.Equal(t, int64(taskCount), st.Completed)
	assert.Equal(t, int64(0), st.Failed)
}

func TestHigherPriorityAdmittedFirstUnderSaturation(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	blockerStarted := make(chan struct{})
	release := make(chan struct{})
	blockerFut := s.Submit(func(ctx context.Context) (string, error) {
		close(blockerStarted)
		<-release
		return "blocker", nil
	}, Options{})

	select {
	case <-blockerStarted:
	case <-time.After(time.Second):
		t.Fatal("blocker never started")
	}

	var mu sync.Mutex
	var order []string
	record := func(name string) Operation[string] {
		return func(ctx context.Context) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}
	}

	lowFut := s.Submit(record("low"), Options{Priority: 1})
	highFut := s.Submit(record("high"), Options{Priority: 5})

	close(release)

	for _, fut := range []*Future[string]{blockerFut, lowFut, highFut} {
		_, err := awaitValue(t, fut)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"high", "low"}, order)
}

func TestEqualPriorityAdmittedInSubmissionOrder(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	blockerStarted := make(chan struct{})
	release := make(chan struct{})
	blockerFut := s.Submit(func(ctx context.Context) (string, error) {
		close(blockerStarted)
		<-release
		return "blocker", nil
	}, Options{})

	select {
	case <-blockerStarted:
	case <-time.After(time.Second):
		t.Fatal("blocker never started")
	}

	var mu sync.Mutex
	var order []string
	names := []string{"first", "second", "third", "fourth", "fifth"}
	futures := make([]*Future[string], 0, len(names))
	for _, name := range names {
		name := name
		fut := s.Submit(func(ctx context.Context) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}, Options{Priority: 7})
		futures = append(futures, fut)
	}

	close(release)

	_, err := awaitValue(t, blockerFut)
	require.NoError(t, err)
	for _, fut := range futures {
		_, err := awaitValue(t, fut)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, names, order)
}

func TestTimeoutFailsAtTimeoutNotAtOperationRuntime(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	start := time.Now()
	fut := s.Submit(func(ctx context.Context) (string, error) {
		time.Sleep(500 * time.Millisecond) // ignores its context on purpose
		return "late", nil
	}, Options{Timeout: 100 * time.Millisecond})

	_, err := awaitValue(t, fut)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTaskTimeout)
	assert.Less(t, elapsed, 400*time.Millisecond,
		"future settled near the operation runtime instead of the timeout")

	st := s.Stats()
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, int64(0), st.Completed)
}

func TestTimeoutFreesSlotForNextTask(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	slowFut := s.Submit(func(ctx context.Context) (string, error) {
		time.Sleep(500 * time.Millisecond)
		return "slow", nil
	}, Options{Timeout: 100 * time.Millisecond})

	nextStarted := make(chan struct{})
	nextFut := s.Submit(func(ctx context.Context) (string, error) {
		close(nextStarted)
		return "next", nil
	}, Options{})

	_, err := awaitValue(t, slowFut)
	require.ErrorIs(t, err, ErrTaskTimeout)

	select {
	case <-nextStarted:
	case <-time.After(time.Second):
		t.Fatal("slot freed by timeout was not reused")
	}

	value, err := awaitValue(t, nextFut)
	require.NoError(t, err)
	assert.Equal(t, "next", value)
}

func TestTimeoutCancelsOperationContext(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	cancelObserved := make(chan struct{})
	fut := s.Submit(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelObserved)
		// Linger so the supervisor settles the future first.
		time.Sleep(200 * time.Millisecond)
		return "", ctx.Err()
	}, Options{Timeout: 50 * time.Millisecond})

	_, err := awaitValue(t, fut)
	require.ErrorIs(t, err, ErrTaskTimeout)

	select {
	case <-cancelObserved:
	case <-time.After(time.Second):
		t.Fatal("operation never observed cancellation")
	}
}

func TestOperationErrorPassedThroughUnmodified(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	opErr := errors.New("model rejected the image")
	fut := s.Submit(func(ctx context.Context) (string, error) {
		return "", opErr
	}, Options{})

	_, err := awaitValue(t, fut)
	require.ErrorIs(t, err, opErr)
	assert.NotErrorIs(t, err, ErrTaskTimeout)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Failed)
}

func TestPanickingOperationCountsAsFailed(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	fut := s.Submit(func(ctx context.Context) (string, error) {
		panic("decoder blew up")
	}, Options{})

	_, err := awaitValue(t, fut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	st := s.Stats()
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, 0, st.Running)
}

func TestCounterIdentityHoldsUnderChurn(t *testing.T) {
	t.Parallel()

	const taskCount = 30

	s := newTestScheduler(3, time.Second)

	stop := make(chan struct{})
	var samplerWG sync.WaitGroup
	samplerWG.Add(1)
	go func() {
		defer samplerWG.Done()
		for {
			select {
			case <-stop:
				return
			default:
				st := s.Stats()
				assert.Equal(t, st.Total, st.Completed+st.Failed+int64(st.Running)+int64(st.Pending),
					"counter identity violated in snapshot %+v", st)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	taskErr := errors.New("synthetic failure")
	futures := make([]*Future[string], 0, taskCount)
	for i := 0; i < taskCount; i++ {
		i := i
		fut := s.Submit(func(ctx context.Context) (string, error) {
			time.Sleep(time.Duration(1+i%5) * time.Millisecond)
			if i%3 == 0 {
				return "", taskErr
			}
			return "ok", nil
		}, Options{Priority: i % 4})
		futures = append(futures, fut)
	}

	for _, fut := range futures {
		_, _ = awaitValue(t, fut)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))

	close(stop)
	samplerWG.Wait()

	st := s.Stats()
	assert.Equal(t, int64(taskCount), st.Total)
	assert.Equal(t, int64(10), st.Failed)
	assert.Equal(t, int64(20), st.Completed)
	assert.Equal(t, 0, st.Running)
	assert.Equal(t, 0, st.Pending)
}

func TestClearRejectsQueuedTasksOnly(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	blockerStarted := make(chan struct{})
	release := make(chan struct{})
	blockerFut := s.Submit(func(ctx context.Context) (string, error) {
		close(blockerStarted)
		<-release
		return "blocker", nil
	}, Options{})

	select {
	case <-blockerStarted:
	case <-time.After(time.Second):
		t.Fatal("blocker never started")
	}

	var executed sync.Map
	queued := make([]*Future[string], 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		fut := s.Submit(func(ctx context.Context) (string, error) {
			executed.Store(i, true)
			return "should not run", nil
		}, Options{})
		queued = append(queued, fut)
	}

	cleared := s.Clear()
	require.Equal(t, 5, cleared)

	for _, fut := range queued {
		_, err := awaitValue(t, fut)
		require.ErrorIs(t, err, ErrQueueCleared)
	}

	st := s.Stats()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 1, st.Running)
	assert.Equal(t, int64(5), st.Failed)
	assert.Equal(t, st.Total, st.Completed+st.Failed+int64(st.Running)+int64(st.Pending))

	close(release)
	value, err := awaitValue(t, blockerFut)
	require.NoError(t, err)
	assert.Equal(t, "blocker", value)

	executed.Range(func(key, _ any) bool {
		t.Errorf("cleared task %v still executed", key)
		return true
	})

	st = s.Stats()
	assert.Equal(t, int64(1), st.Completed)
	assert.Equal(t, int64(6), st.Total)
}

func TestClearOnEmptyQueueIsNoOp(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(2, time.Second)
	assert.Equal(t, 0, s.Clear())

	st := s.Stats()
	assert.Equal(t, int64(0), st.Total)
	assert.Equal(t, int64(0), st.Failed)
}

func TestWaitIdleReturnsImmediatelyWhenIdle(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(2, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))
}

func TestWaitIdleResolvesAfterDrain(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(2, time.Second)

	futures := make([]*Future[string], 0, 6)
	for i := 0; i < 6; i++ {
		fut := s.Submit(func(ctx context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "ok", nil
		}, Options{})
		futures = append(futures, fut)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))

	st := s.Stats()
	assert.Equal(t, 0, st.Running)
	assert.Equal(t, 0, st.Pending)

	for _, fut := range futures {
		_, err := awaitValue(t, fut)
		require.NoError(t, err)
	}
}

func TestWaitIdleFailsWithDrainTimeoutWhileBusy(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, time.Second)

	fut := s.Submit(func(ctx context.Context) (string, error) {
		time.Sleep(500 * time.Millisecond)
		return "slow", nil
	}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.WaitIdle(ctx)
	require.ErrorIs(t, err, ErrDrainTimeout)

	// The scheduler still drains once the work finishes.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	require.NoError(t, s.WaitIdle(drainCtx))

	_, err = awaitValue(t, fut)
	require.NoError(t, err)
}

func TestSchedulerReturnsToIdleBetweenBursts(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(2, time.Second)

	for burst := 0; burst < 3; burst++ {
		fut := s.Submit(func(ctx context.Context) (string, error) {
			return "ok", nil
		}, Options{})
		_, err := awaitValue(t, fut)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, s.WaitIdle(ctx))
		cancel()
	}

	st := s.Stats()
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(3), st.Completed)
}

func TestZeroTimeoutOptionUsesSchedulerDefault(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(1, 80*time.Millisecond)

	fut := s.Submit(func(ctx context.Context) (string, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "operation context should carry a deadline")
		assert.LessOrEqual(t, time.Until(deadline), 80*time.Millisecond)
		return "ok", nil
	}, Options{})

	_, err := awaitValue(t, fut)
	require.NoError(t, err)
}
