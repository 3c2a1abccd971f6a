package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SerialQueue runs submitted tasks one at a time on a single worker
// goroutine. The worker is created lazily by the first submission and exits
// when it observes disposal.
//
// Use cases:
// 1. Serializing access to state without explicit locks
// 2. Ordered background processing (logs, IO, bookkeeping)
// 3. Simulating a main/UI loop that other code posts onto
type SerialQueue struct {
	engine *TaskQueue

	name string
	qos  QoSClass

	mu         sync.Mutex
	workerDone chan struct{} // non-nil once the worker has been spawned

	disableSyncInCaller atomic.Bool
	runningSync         atomic.Bool

	wakeInterval time.Duration
	logger       Logger
	history      *executionHistory
}

// NewSerialQueue creates a serial queue with default tuning and
// collaborators. The QoS class is an advisory hint; see QoSClass.
func NewSerialQueue(name string, qos QoSClass) *SerialQueue {
	return NewSerialQueueWithConfig(name, qos, DefaultConfig(), DefaultTaskQueueConfig())
}

// NewSerialQueueWithConfig creates a serial queue with explicit tuning and
// engine collaborators. A nil queueConfig selects defaults.
func NewSerialQueueWithConfig(name string, qos QoSClass, cfg Config, queueConfig *TaskQueueConfig) *SerialQueue {
	if queueConfig == nil {
		queueConfig = DefaultTaskQueueConfig()
	}
	if queueConfig.Name == "" {
		queueConfig.Name = name
	}

	s := &SerialQueue{
		engine:       NewTaskQueueWithConfig(queueConfig),
		name:         name,
		qos:          qos,
		wakeInterval: cfg.workerWake(),
		logger:       queueConfig.Logger,
		history:      newExecutionHistory(cfg.HistoryCapacity),
	}
	if s.logger == nil {
		s.logger = &NoOpLogger{}
	}

	s.logger.Debug("serial queue created", F("queue", name), F("qos", qos.String()))
	return s
}

// Name returns the debug name of the queue.
func (s *SerialQueue) Name() string {
	return s.name
}

// QoS returns the advisory priority hint.
func (s *SerialQueue) QoS() QoSClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qos
}

// SetQoS updates the advisory priority hint. The Go runtime offers no
// goroutine priorities; the new value is only reported back by QoS().
func (s *SerialQueue) SetQoS(qos QoSClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qos = qos
}

// Engine exposes the underlying TaskQueue for listener installation and
// advanced use.
func (s *SerialQueue) Engine() *TaskQueue {
	return s.engine
}

// SetListener forwards to the engine. See QueueListener for the contract.
func (s *SerialQueue) SetListener(listener QueueListener) {
	s.engine.SetListener(listener)
}

// =============================================================================
// Submission
// =============================================================================

func (s *SerialQueue) observe(task Task) Task {
	return wrapObservedTask(task, s.name, "serial", s.history.Add)
}

// Async submits a task for asynchronous, in-order execution.
func (s *SerialQueue) Async(task Task) {
	enqueued := s.engine.Enqueue(s.observe(task))
	if enqueued.IsFirst {
		s.startWorker()
	}
}

// AsyncAfter submits a task to run no earlier than delay from now.
func (s *SerialQueue) AsyncAfter(task Task, delay time.Duration) TaskID {
	enqueued := s.engine.EnqueueDelayed(s.observe(task), delay)
	if enqueued.IsFirst {
		s.startWorker()
	}
	return enqueued.ID
}

// Cancel removes a pending task. See TaskQueue.Cancel.
func (s *SerialQueue) Cancel(id TaskID) {
	s.engine.Cancel(id)
}

// =============================================================================
// Sync
// =============================================================================

// Sync runs the task with mutual exclusion against all other work on this
// queue and blocks until it completes. In the default mode the task runs on
// the calling goroutine via an engine barrier; the callback context reports
// IsCurrent() == true for its duration.
//
// With sync-in-calling-goroutine disabled (SetDisableSyncCallsInCallingThread),
// the task is enqueued like an Async task and the caller blocks on a
// completion handoff; a panic from the task is re-raised in the caller.
//
// Calling Sync from this queue's own worker deadlocks. Use SafeSync.
func (s *SerialQueue) Sync(ctx context.Context, task Task) {
	if s.disableSyncInCaller.Load() {
		s.syncViaHandoff(ctx, task)
		return
	}

	s.engine.Barrier(ctx, func(bctx context.Context) {
		bctx = withCurrentQueue(bctx, s)
		s.runningSync.Store(true)
		defer s.runningSync.Store(false)
		task(bctx)
	})
}

func (s *SerialQueue) syncViaHandoff(ctx context.Context, task Task) {
	done := make(chan struct{})
	var panicValue any
	var panicked bool

	enqueued := s.engine.Enqueue(func(tctx context.Context) {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				panicked = true
				panicValue = rec
			}
		}()
		s.runningSync.Store(true)
		defer s.runningSync.Store(false)
		task(tctx)
	})

	if enqueued.ID.IsNull() {
		// Disposed: the handoff would never be signalled.
		return
	}
	if enqueued.IsFirst {
		s.startWorker()
	}

	<-done
	if panicked {
		panic(panicValue)
	}
}

// SafeSync invokes the task inline when called from this queue's worker (or
// from a Sync callback on this queue), avoiding the self-deadlock of Sync.
// Otherwise it behaves like Sync.
func (s *SerialQueue) SafeSync(ctx context.Context, task Task) bool {
	return runSafeSync(ctx, s, task)
}

// IsCurrent reports whether the context belongs to this queue.
func (s *SerialQueue) IsCurrent(ctx context.Context) bool {
	return CurrentQueue(ctx) == Queue(s)
}

// IsRunningSync reports whether a Sync callback is currently executing.
func (s *SerialQueue) IsRunningSync() bool {
	return s.runningSync.Load()
}

// SetDisableSyncCallsInCallingThread switches Sync from the barrier mode
// (task runs on the caller) to the handoff mode (task runs on the worker,
// caller blocks until completion).
func (s *SerialQueue) SetDisableSyncCallsInCallingThread(disable bool) {
	s.disableSyncInCaller.Store(disable)
}

// =============================================================================
// Worker
// =============================================================================

func (s *SerialQueue) startWorker() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The IsFirst edge fires exactly once per engine lifetime, so callers
	// reach this once; the check only guards against a repeated call while
	// a worker is recorded.
	if s.workerDone != nil {
		return
	}

	done := make(chan struct{})
	s.workerDone = done
	go s.workerLoop(done)
}

func (s *SerialQueue) workerLoop(done chan struct{}) {
	defer close(done)

	ctx := withCurrentQueue(context.Background(), s)
	s.logger.Debug("worker started", F("queue", s.name))

	for !s.engine.IsDisposed() {
		s.engine.RunNextTask(ctx, time.Now().Add(s.wakeInterval))
	}

	s.logger.Debug("worker exited", F("queue", s.name))
}

// HasWorkerRunning reports whether the lazy worker has been spawned and not
// yet torn down.
func (s *SerialQueue) HasWorkerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerDone != nil
}

// =============================================================================
// Teardown
// =============================================================================

// FlushAndTeardown waits for pending due work via SafeSync, then disposes
// the engine and tears down the worker. Safe to call from within a task on
// this queue. The teardown runs with this queue marked current (inline from
// a task, or inside the Sync callback otherwise), so the worker is never
// joined here: it is left to exit on its own once it observes disposal.
func (s *SerialQueue) FlushAndTeardown(ctx context.Context) {
	s.SafeSync(ctx, func(c context.Context) {
		s.fullTeardown(c)
	})
}

// Teardown disposes the engine and joins the worker unless called from the
// queue itself.
func (s *SerialQueue) Teardown(ctx context.Context) {
	s.fullTeardown(ctx)
}

func (s *SerialQueue) fullTeardown(ctx context.Context) {
	s.engine.Dispose()
	s.teardownWorker(ctx)
}

func (s *SerialQueue) teardownWorker(ctx context.Context) {
	s.mu.Lock()
	done := s.workerDone
	s.workerDone = nil
	s.mu.Unlock()

	if done == nil {
		return
	}

	if s.IsCurrent(ctx) {
		// Cannot join the owning worker from itself; it exits on its own
		// once it observes disposal. Until then it may briefly outlive
		// this queue handle, holding only the shared engine.
		s.logger.Debug("detaching worker on self-teardown", F("queue", s.name))
		return
	}

	<-done
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns current observability data for this queue.
func (s *SerialQueue) Stats() QueueStats {
	stats := QueueStats{
		Name:     s.name,
		Type:     "serial",
		Pending:  s.engine.Len(),
		Running:  s.engine.RunningCount(),
		Disposed: s.engine.IsDisposed(),
	}
	if last, ok := s.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns completed task execution records in newest-first order.
func (s *SerialQueue) RecentTasks(limit int) []TaskExecutionRecord {
	return s.history.Recent(limit)
}
