package core

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// taskKey orders tasks by (executeAt, id). Ties on executeAt fall back to the
// id, which preserves FIFO among same-instant submissions.
type taskKey struct {
	at time.Time
	id TaskID
}

func compareTaskKeys(a, b interface{}) int {
	ka := a.(taskKey)
	kb := b.(taskKey)
	if ka.at.Before(kb.at) {
		return -1
	}
	if ka.at.After(kb.at) {
		return 1
	}
	switch {
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// queuedTask is the stored entry. A barrier task carries no callable; it is a
// pure marker released by Barrier itself.
type queuedTask struct {
	fn        Task
	isBarrier bool
}

// TaskQueue is the engine: a time-ordered task store with synchronization,
// cancellation, barrier support and listener dispatch.
//
// All state is protected by a single mutex. Waiting uses a broadcast channel
// that is closed and replaced on every notification, which gives the
// wait-with-deadline the standard condition variable lacks. Waiters re-check
// their predicate in a loop, so the occasional spurious wake-up is harmless.
//
// TaskQueue itself creates no goroutines; workers drive it by calling
// RunNextTask in a loop. See SerialQueue and PoolQueue.
type TaskQueue struct {
	mu   sync.Mutex
	wake chan struct{}

	disposed atomic.Bool

	nextID TaskID
	tasks  *redblacktree.Tree // taskKey -> *queuedTask
	index  map[TaskID]taskKey

	everEnqueued  bool
	empty         bool // last-signalled emptiness, drives listener edges
	running       int
	maxConcurrent int

	listener QueueListener

	name         string
	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
}

// NewTaskQueue creates an empty queue with maxConcurrent = 1 and default
// collaborators.
func NewTaskQueue() *TaskQueue {
	return NewTaskQueueWithConfig(DefaultTaskQueueConfig())
}

// NewTaskQueueWithConfig creates an empty queue using the given config.
// Nil config fields fall back to defaults.
func NewTaskQueueWithConfig(config *TaskQueueConfig) *TaskQueue {
	q := &TaskQueue{
		wake:          make(chan struct{}),
		tasks:         redblacktree.NewWith(compareTaskKeys),
		index:         make(map[TaskID]taskKey),
		empty:         true,
		maxConcurrent: 1,
	}

	if config != nil {
		q.name = config.Name
		q.logger = config.Logger
		q.panicHandler = config.PanicHandler
		q.metrics = config.Metrics
		q.listener = config.Listener
	}

	if q.logger == nil {
		q.logger = &NoOpLogger{}
	}
	if q.panicHandler == nil {
		q.panicHandler = &DefaultPanicHandler{}
	}
	if q.metrics == nil {
		q.metrics = &NilMetrics{}
	}

	return q
}

// Name returns the debug name of the queue.
func (q *TaskQueue) Name() string {
	return q.name
}

// =============================================================================
// Wait / notify
// =============================================================================

// signalLocked wakes every waiter. Must be called with the mutex held.
func (q *TaskQueue) signalLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// waitLocked blocks until a signal or the deadline, whichever comes first.
// Returns true if woken by a signal, false on timeout. The mutex is released
// while waiting and re-acquired before returning.
func (q *TaskQueue) waitLocked(deadline time.Time) bool {
	ch := q.wake
	q.mu.Unlock()
	defer q.mu.Lock()

	wait := time.Until(deadline)
	if wait <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// waitSignalLocked blocks until the next signal with no deadline.
func (q *TaskQueue) waitSignalLocked() {
	ch := q.wake
	q.mu.Unlock()
	<-ch
	q.mu.Lock()
}

// =============================================================================
// Enqueue
// =============================================================================

// insertLocked assigns a fresh id and inserts the task at its ordered
// position. Must be called with the mutex held.
func (q *TaskQueue) insertLocked(fn Task, executeAt time.Time, isBarrier bool) TaskID {
	q.nextID++
	id := q.nextID

	key := taskKey{at: executeAt, id: id}
	q.tasks.Put(key, &queuedTask{fn: fn, isBarrier: isBarrier})
	q.index[id] = key

	return id
}

// Enqueue inserts a task to execute as soon as a worker is available.
func (q *TaskQueue) Enqueue(fn Task) EnqueuedTask {
	return q.EnqueueAt(fn, time.Now())
}

// EnqueueDelayed inserts a task to execute no earlier than delay from now.
func (q *TaskQueue) EnqueueDelayed(fn Task, delay time.Duration) EnqueuedTask {
	return q.EnqueueAt(fn, time.Now().Add(delay))
}

// EnqueueAt inserts a task to execute no earlier than executeAt.
// After dispose it is a silent no-op returning a null id.
func (q *TaskQueue) EnqueueAt(fn Task, executeAt time.Time) EnqueuedTask {
	if q.disposed.Load() {
		q.metrics.RecordTaskRejected(q.name, "disposed")
		return EnqueuedTask{}
	}

	var enqueued EnqueuedTask

	q.mu.Lock()
	// Re-check under the mutex: a concurrent Dispose may have cleared the
	// store between the fast-path check and the lock acquisition.
	if q.disposed.Load() {
		q.mu.Unlock()
		q.metrics.RecordTaskRejected(q.name, "disposed")
		return EnqueuedTask{}
	}
	enqueued.ID = q.insertLocked(fn, executeAt, false)
	enqueued.IsFirst = !q.everEnqueued
	q.everEnqueued = true

	if q.empty {
		q.empty = false
		if q.listener != nil {
			q.listener.OnQueueNonEmpty()
		}
	}

	q.metrics.RecordQueueDepth(q.name, q.tasks.Size())
	q.signalLocked()
	q.mu.Unlock()

	return enqueued
}

// =============================================================================
// Cancel
// =============================================================================

// removeLocked erases the task with the given id and returns its callable.
// Must be called with the mutex held.
func (q *TaskQueue) removeLocked(id TaskID) (Task, bool) {
	key, ok := q.index[id]
	if !ok {
		return nil, false
	}

	var fn Task
	if value, found := q.tasks.Get(key); found {
		fn = value.(*queuedTask).fn
	}
	q.tasks.Remove(key)
	delete(q.index, id)

	return fn, true
}

// Cancel removes a not-yet-claimed task. Cancelling a running or unknown id
// is a silent no-op. Cancellation never blocks on the task's execution.
func (q *TaskQueue) Cancel(id TaskID) {
	if id.IsNull() {
		return
	}

	q.mu.Lock()
	fn, removed := q.removeLocked(id)
	if removed {
		q.metrics.RecordTaskCancelled(q.name)
		q.metrics.RecordQueueDepth(q.name, q.tasks.Size())
	}
	q.signalLocked()
	q.mu.Unlock()

	// The last reference to the callable dies here, after the mutex is
	// released. Anything it owns is torn down without the queue lock held.
	runtime.KeepAlive(fn)
}

// =============================================================================
// Worker protocol
// =============================================================================

// headLocked returns the entry with the smallest (executeAt, id).
func (q *TaskQueue) headLocked() (taskKey, *queuedTask) {
	node := q.tasks.Left()
	return node.Key.(taskKey), node.Value.(*queuedTask)
}

// claimNext implements the worker wait loop: it blocks up to deadline for a
// runnable non-barrier task whose execute time has arrived, claims it, and
// returns its callable. Returns false on timeout or disposal.
func (q *TaskQueue) claimNext(deadline time.Time) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.disposed.Load() {
		// Queue empty: signal the edge once, then wait for work.
		if q.tasks.Empty() {
			if !q.empty {
				q.empty = true
				if q.listener != nil {
					q.listener.OnQueueEmpty()
				}
			}
			if !q.waitLocked(deadline) {
				return nil, false
			}
			continue
		}

		// Concurrency budget exhausted.
		if q.running >= q.maxConcurrent {
			if !q.waitLocked(deadline) {
				return nil, false
			}
			continue
		}

		key, head := q.headLocked()

		// A barrier cannot be claimed here; Barrier releases it itself
		// once it is at the head with nothing in flight.
		if head.isBarrier {
			if !q.waitLocked(deadline) {
				return nil, false
			}
			continue
		}

		// Head not yet due: sleep until its execute time or the caller's
		// deadline, whichever is earlier.
		if key.at.After(time.Now()) {
			waitUntil := deadline
			if key.at.Before(deadline) {
				waitUntil = key.at
			}
			signalled := q.waitLocked(waitUntil)
			if !signalled && waitUntil.Equal(deadline) {
				return nil, false
			}
			continue
		}

		// Claim the head.
		fn := head.fn
		q.tasks.Remove(key)
		delete(q.index, key.id)
		q.running++
		q.metrics.RecordQueueDepth(q.name, q.tasks.Size())
		return fn, true
	}

	return nil, false
}

// RunNextTask blocks up to deadline waiting for a runnable task, executes it
// if one was obtained, and reports whether a task ran.
//
// The context is passed through to the task; worker loops use it to carry
// the current-queue handle.
func (q *TaskQueue) RunNextTask(ctx context.Context, deadline time.Time) bool {
	fn, ok := q.claimNext(deadline)
	if !ok {
		return false
	}

	q.invoke(ctx, fn)
	fn = nil // drop the callable before waking waiters

	q.mu.Lock()
	q.running--
	q.signalLocked()
	q.mu.Unlock()

	return true
}

// RunNextTaskNow is RunNextTask with deadline = now: it runs a due task if
// one exists and never waits for future work.
func (q *TaskQueue) RunNextTaskNow(ctx context.Context) bool {
	return q.RunNextTask(ctx, time.Now())
}

// invoke executes a claimed task, recovering panics at the worker boundary.
func (q *TaskQueue) invoke(ctx context.Context, fn Task) {
	startedAt := time.Now()

	defer func() {
		q.metrics.RecordTaskDuration(q.name, time.Since(startedAt))
		if rec := recover(); rec != nil {
			q.metrics.RecordTaskPanic(q.name, rec)
			q.panicHandler.HandlePanic(ctx, q.name, rec, debug.Stack())
		}
	}()

	if fn != nil {
		fn(ctx)
	}
}

// =============================================================================
// Barrier
// =============================================================================

// Barrier inserts a serialization point and runs fn on the calling goroutine
// once every earlier task has finished and nothing else is in flight. While
// fn runs, no worker can start any other task.
//
// A panic from fn propagates to the caller; the barrier entry is erased and
// the in-flight count restored first.
//
// Barrier has no timeout. If the barrier entry is cancelled by another
// goroutine, Barrier may never return; callers that cancel barrier ids must
// not wait on the corresponding Sync.
func (q *TaskQueue) Barrier(ctx context.Context, fn Task) {
	q.mu.Lock()
	if q.disposed.Load() {
		q.mu.Unlock()
		return
	}
	id := q.insertLocked(nil, time.Now(), true)

	for !q.tasks.Empty() {
		head := q.tasks.Left().Key.(taskKey)
		if q.running != 0 || head.id != id {
			q.waitSignalLocked()
			continue
		}

		q.running++
		q.mu.Unlock()
		q.runBarrier(ctx, fn, id)
		return
	}

	// Dispose cleared the queue, barrier entry included.
	q.mu.Unlock()
}

func (q *TaskQueue) runBarrier(ctx context.Context, fn Task, id TaskID) {
	defer func() {
		q.mu.Lock()
		q.removeLocked(id)
		q.running--
		q.signalLocked()
		q.mu.Unlock()
	}()

	if fn != nil {
		fn(ctx)
	}
}

// =============================================================================
// Flush
// =============================================================================

// Flush runs every currently-enqueued task to completion, including tasks
// whose execute time lies in the future, respecting order. It is a drain-all
// primitive for teardown and returns the number of tasks run.
func (q *TaskQueue) Flush(ctx context.Context) int {
	count := 0
	for {
		q.mu.Lock()
		if q.disposed.Load() || q.tasks.Empty() {
			q.mu.Unlock()
			return count
		}
		headAt := q.tasks.Left().Key.(taskKey).at
		q.mu.Unlock()

		deadline := headAt
		if now := time.Now(); deadline.Before(now) {
			deadline = now
		}
		if q.RunNextTask(ctx, deadline) {
			count++
		}
	}
}

// FlushUpToNow runs every task whose execute time has already arrived and
// returns how many ran. Future-dated tasks stay enqueued.
func (q *TaskQueue) FlushUpToNow(ctx context.Context) int {
	count := 0
	for q.RunNextTaskNow(ctx) {
		count++
	}
	return count
}

// =============================================================================
// Dispose
// =============================================================================

// Dispose is terminal and idempotent: it clears pending tasks, rejects all
// further enqueues, and wakes every waiter. Already-running tasks are not
// aborted; their workers finish the current callable and then observe the
// disposed flag.
func (q *TaskQueue) Dispose() {
	if q.disposed.Swap(true) {
		return
	}

	q.mu.Lock()
	dropped := q.tasks.Values() // keep references until after unlock
	q.tasks.Clear()
	q.index = make(map[TaskID]taskKey)
	q.signalLocked()
	q.mu.Unlock()

	if len(dropped) > 0 {
		q.logger.Debug("discarded pending tasks on dispose",
			F("queue", q.name), F("count", len(dropped)))
	}
	// Pending callables are released here, outside the mutex.
	runtime.KeepAlive(dropped)

	q.metrics.RecordQueueDepth(q.name, 0)
}

// IsDisposed reports whether Dispose has been called.
func (q *TaskQueue) IsDisposed() bool {
	return q.disposed.Load()
}

// =============================================================================
// Accessors
// =============================================================================

// SetMaxConcurrent bounds the number of concurrently running tasks.
// Values below 1 are treated as 1.
func (q *TaskQueue) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}

	q.mu.Lock()
	if q.maxConcurrent == n {
		q.mu.Unlock()
		return
	}
	q.maxConcurrent = n
	// A larger budget may allow blocked workers to proceed.
	q.signalLocked()
	q.mu.Unlock()
}

// MaxConcurrent returns the current concurrency bound.
func (q *TaskQueue) MaxConcurrent() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxConcurrent
}

// SetListener installs the queue state listener. See QueueListener for the
// callback contract.
func (q *TaskQueue) SetListener(listener QueueListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listener = listener
}

// Listener returns the installed listener.
func (q *TaskQueue) Listener() QueueListener {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.listener
}

// Len returns the number of pending (not yet claimed) tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Size()
}

// RunningCount returns the number of tasks currently executing.
func (q *TaskQueue) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
