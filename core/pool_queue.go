package core

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// PoolQueue runs submitted tasks on a fixed set of worker goroutines with
// bounded parallelism: at most workerCount tasks execute at once. Workers
// are started eagerly at construction.
//
// Unlike SerialQueue there is no ordering between tasks that are due at the
// same instant; a barrier submitted after a task is still guaranteed to
// observe it complete.
type PoolQueue struct {
	engine *TaskQueue

	name        string
	workerCount int

	running atomic.Bool
	workers sync.WaitGroup

	teardownOnce sync.Once

	wakeInterval time.Duration
	logger       Logger
	history      *executionHistory
}

// hardwareConcurrency returns the worker-count default for pools.
func hardwareConcurrency() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 4
	}
	return n
}

// NewPoolQueue creates a pool with workerCount workers and default tuning.
// workerCount <= 0 selects the hardware concurrency hint.
func NewPoolQueue(name string, workerCount int) *PoolQueue {
	return NewPoolQueueWithConfig(name, workerCount, DefaultConfig(), DefaultTaskQueueConfig())
}

// NewPoolQueueWithConfig creates a pool with explicit tuning and engine
// collaborators. A nil queueConfig selects defaults.
func NewPoolQueueWithConfig(name string, workerCount int, cfg Config, queueConfig *TaskQueueConfig) *PoolQueue {
	if workerCount <= 0 {
		workerCount = cfg.PoolSize
	}
	if workerCount <= 0 {
		workerCount = hardwareConcurrency()
	}

	if queueConfig == nil {
		queueConfig = DefaultTaskQueueConfig()
	}
	if queueConfig.Name == "" {
		queueConfig.Name = name
	}

	p := &PoolQueue{
		engine:       NewTaskQueueWithConfig(queueConfig),
		name:         name,
		workerCount:  workerCount,
		wakeInterval: cfg.poolWorkerWake(),
		logger:       queueConfig.Logger,
		history:      newExecutionHistory(cfg.HistoryCapacity),
	}
	if p.logger == nil {
		p.logger = &NoOpLogger{}
	}

	p.engine.SetMaxConcurrent(workerCount)
	p.running.Store(true)
	p.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.workerLoop(i)
	}

	p.logger.Debug("pool queue created", F("queue", name), F("workers", workerCount))
	return p
}

// Name returns the debug name of the pool.
func (p *PoolQueue) Name() string {
	return p.name
}

// WorkerCount returns the number of workers, which is also the engine's
// concurrency bound.
func (p *PoolQueue) WorkerCount() int {
	return p.workerCount
}

// Engine exposes the underlying TaskQueue for listener installation and
// advanced use.
func (p *PoolQueue) Engine() *TaskQueue {
	return p.engine
}

// SetListener forwards to the engine. See QueueListener for the contract.
func (p *PoolQueue) SetListener(listener QueueListener) {
	p.engine.SetListener(listener)
}

func (p *PoolQueue) workerLoop(index int) {
	defer p.workers.Done()

	ctx := withCurrentQueue(context.Background(), p)
	p.logger.Debug("pool worker started", F("queue", p.name), F("worker", index))

	for p.running.Load() {
		p.engine.RunNextTask(ctx, time.Now().Add(p.wakeInterval))
	}

	p.logger.Debug("pool worker exited", F("queue", p.name), F("worker", index))
}

// =============================================================================
// Submission
// =============================================================================

func (p *PoolQueue) observe(task Task) Task {
	return wrapObservedTask(task, p.name, "pool", p.history.Add)
}

// Async submits a task for execution on any available worker.
func (p *PoolQueue) Async(task Task) {
	p.engine.Enqueue(p.observe(task))
}

// AsyncAfter submits a task to run no earlier than delay from now.
func (p *PoolQueue) AsyncAfter(task Task, delay time.Duration) TaskID {
	return p.engine.EnqueueDelayed(p.observe(task), delay).ID
}

// Cancel removes a pending task. See TaskQueue.Cancel.
func (p *PoolQueue) Cancel(id TaskID) {
	p.engine.Cancel(id)
}

// =============================================================================
// Sync
// =============================================================================

// Sync runs the task on the calling goroutine with exclusion against every
// worker: while it runs, all workerCount workers are paused. Called from a
// worker it degrades to inline invocation to avoid self-deadlock.
func (p *PoolQueue) Sync(ctx context.Context, task Task) {
	if p.IsCurrent(ctx) {
		task(ctx)
		return
	}
	p.engine.Barrier(ctx, task)
}

// SafeSync invokes the task inline when called from one of this pool's
// workers, and falls back to Sync otherwise.
func (p *PoolQueue) SafeSync(ctx context.Context, task Task) bool {
	return runSafeSync(ctx, p, task)
}

// IsCurrent reports whether the context belongs to one of this pool's
// workers.
func (p *PoolQueue) IsCurrent(ctx context.Context) bool {
	return CurrentQueue(ctx) == Queue(p)
}

// =============================================================================
// Teardown
// =============================================================================

// FlushAndTeardown waits for pending due work via SafeSync, then disposes
// the engine and joins all workers.
//
// Must not be called from one of this pool's own tasks: joining the workers
// from a worker never returns. That path is undefined behavior.
func (p *PoolQueue) FlushAndTeardown(ctx context.Context) {
	p.SafeSync(ctx, func(context.Context) {
		p.fullTeardown()
	})
}

// Teardown disposes the engine and joins all workers.
func (p *PoolQueue) Teardown() {
	p.fullTeardown()
}

func (p *PoolQueue) fullTeardown() {
	p.teardownOnce.Do(func() {
		p.running.Store(false)
		p.engine.Dispose()
		p.workers.Wait()
	})
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns current observability data for this pool.
func (p *PoolQueue) Stats() QueueStats {
	stats := QueueStats{
		Name:     p.name,
		Type:     "pool",
		Pending:  p.engine.Len(),
		Running:  p.engine.RunningCount(),
		Disposed: p.engine.IsDisposed(),
	}
	if last, ok := p.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns completed task execution records in newest-first order.
func (p *PoolQueue) RecentTasks(limit int) []TaskExecutionRecord {
	return p.history.Recent(limit)
}
