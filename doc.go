// Package dispatch provides serial and pooled dispatch queues for Go.
//
// Callers submit unit-of-work closures to named queues that run on
// background workers, avoiding explicit lock discipline in client code. The
// core engine is a time-ordered task store with cancellation, barriers and
// listener notifications; two front-ends wrap it:
//
// SerialQueue executes tasks one at a time on a single lazily-started
// worker, preserving submission order among tasks due at the same instant.
//
// PoolQueue executes tasks on N eagerly-started workers with parallelism
// bounded by N.
//
// # Quick Start
//
//	queue := dispatch.NewSerialQueue("io", dispatch.QoSNormal)
//	defer queue.FlushAndTeardown(context.Background())
//
//	queue.Async(func(ctx context.Context) {
//		// Runs on the queue's worker, strictly after earlier submissions.
//	})
//
//	id := queue.AsyncAfter(func(ctx context.Context) {
//		// Runs no earlier than one second from submission.
//	}, time.Second)
//	queue.Cancel(id) // best-effort: no-op once the task is running
//
// # Sync and SafeSync
//
// Sync runs a task with mutual exclusion against every other task on the
// queue and blocks until it completes. Calling Sync from a SerialQueue's own
// worker deadlocks; SafeSync degrades to inline invocation in that case and
// is the recommended entry point:
//
//	queue.SafeSync(ctx, func(ctx context.Context) {
//		// Exclusive access to everything the queue owns.
//	})
//
// # The main queue
//
// A process may designate one queue as "main" via SetMain and retrieve it
// anywhere with Main. The handle is published without synchronization;
// configure it during startup, before concurrent use.
package dispatch
