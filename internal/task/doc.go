// Package task glues the classification domain to the scheduler. The
// processor wraps the fetch, cache, classify, and persist steps of one
// classification into an opaque operation the scheduler can run; the
// event handler turns classification-requested events into scheduler
// submissions.
package task
