package core

import (
	"context"
	"time"
)

// Queue is the user-facing dispatch queue surface shared by SerialQueue and
// PoolQueue.
//
// Async submits fire-and-forget work; AsyncAfter additionally returns an id
// usable with Cancel. Sync runs a task with mutual exclusion against every
// other task on the queue and blocks until it completes; SafeSync degrades
// to inline invocation when the caller is already on the queue, which makes
// it the deadlock-safe entry point.
type Queue interface {
	// Name returns the debug name given at construction.
	Name() string

	// Async submits a task for asynchronous execution.
	Async(task Task)

	// AsyncAfter submits a task to run no earlier than delay from now and
	// returns its id for cancellation. Returns NullTaskID after teardown.
	AsyncAfter(task Task, delay time.Duration) TaskID

	// Sync runs the task with exclusion against all other queue work and
	// blocks until it finishes. Calling SerialQueue.Sync from that queue's
	// own worker deadlocks (PoolQueue.Sync runs inline in that case); use
	// SafeSync instead.
	Sync(ctx context.Context, task Task)

	// SafeSync invokes the task inline when the caller is already on this
	// queue, and falls back to Sync otherwise.
	SafeSync(ctx context.Context, task Task) bool

	// Cancel removes a pending task by id. Running or unknown ids are a
	// silent no-op.
	Cancel(id TaskID)

	// IsCurrent reports whether the context belongs to this queue's
	// worker (or, on a SerialQueue, to a Sync callback on this queue).
	IsCurrent(ctx context.Context) bool

	// FlushAndTeardown runs pending due work, then disposes the queue.
	FlushAndTeardown(ctx context.Context)
}

// =============================================================================
// Current-queue context plumbing
// =============================================================================

// The current queue travels in the task context: workers inject their queue
// before invoking tasks, and barrier-backed Sync injects it transiently
// around the user callback. This replaces thread-local storage; goroutines
// have no identity to hang one on.
type currentQueueKeyType struct{}

var currentQueueKey currentQueueKeyType

// withCurrentQueue returns a context marking q as the current queue.
func withCurrentQueue(ctx context.Context, q Queue) context.Context {
	return context.WithValue(ctx, currentQueueKey, q)
}

// CurrentQueue returns the queue the context's task is running on, or nil.
func CurrentQueue(ctx context.Context) Queue {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(currentQueueKey); v != nil {
		return v.(Queue)
	}
	return nil
}

// runSafeSync implements the shared SafeSync behavior: inline when current,
// Sync otherwise.
func runSafeSync(ctx context.Context, q Queue, task Task) bool {
	if q.IsCurrent(ctx) {
		task(ctx)
		return true
	}
	q.Sync(ctx, task)
	return true
}
