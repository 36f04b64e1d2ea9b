// Package scheduler provides a priority task scheduler with a fixed
// concurrency limit, per-task timeouts, live statistics, and a graceful
// drain protocol. Callers submit opaque operations with a priority and
// receive a future; the scheduler buffers work in a priority queue while
// the concurrency gate is saturated and admits the highest-priority task
// whenever a slot frees.
//
// Timeouts are cooperative: when a task's timer fires, its slot is freed
// and its future fails immediately, and the operation's context is
// cancelled. An operation that ignores its context may keep running in
// the background; its eventual result is discarded.
package scheduler
