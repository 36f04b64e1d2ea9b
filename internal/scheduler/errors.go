package scheduler

import "errors"

// Sentinel errors delivered through task futures. Operation failures are
// passed through unmodified; these cover the scheduler's own terminal
// conditions. Match with errors.Is.
var (
	// ErrTaskTimeout indicates the task's timer fired before its
	// operation settled.
	ErrTaskTimeout = errors.New("task timed out before completion")

	// ErrQueueCleared indicates the task was still queued when Clear
	// was invoked.
	ErrQueueCleared = errors.New("task removed from queue by clear")

	// ErrDrainTimeout is returned by WaitIdle when its context expires
	// before the scheduler reaches idle.
	ErrDrainTimeout = errors.New("timed out waiting for scheduler to become idle")
)
