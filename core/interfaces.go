package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics while a worker is executing it.
// Panics from Sync/Barrier callbacks are not routed here; those propagate to
// the caller of Sync.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a worker-run task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task (carries the current queue)
	// - queueName: The debug name of the queue the task belonged to
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, queueName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, queueName string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Queue %s] Panic: %v\nStack trace:\n%s", queueName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting queue metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast: several are invoked while the
// queue mutex is held.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(queueName string, duration time.Duration)

	// RecordTaskPanic records that a worker-run task panicked.
	RecordTaskPanic(queueName string, panicInfo any)

	// RecordQueueDepth records the current number of pending tasks.
	RecordQueueDepth(queueName string, depth int)

	// RecordTaskRejected records that a submission was dropped
	// (e.g., enqueue after dispose).
	RecordTaskRejected(queueName string, reason string)

	// RecordTaskCancelled records that a pending task was removed by Cancel.
	RecordTaskCancelled(queueName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(queueName string, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(queueName string, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(queueName string, depth int) {}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(queueName string, reason string) {}

// RecordTaskCancelled is a no-op.
func (m *NilMetrics) RecordTaskCancelled(queueName string) {}

// =============================================================================
// TaskQueueConfig: Configuration for TaskQueue
// =============================================================================

// TaskQueueConfig holds the pluggable collaborators of a TaskQueue.
// All fields are optional; defaults are applied for nil entries.
type TaskQueueConfig struct {
	// Name is the debug name used in logs and metric labels.
	Name string

	// Logger receives queue lifecycle events. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a worker-run task panics. Defaults to
	// DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records queue metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Listener observes empty/non-empty edges. Optional.
	Listener QueueListener
}

// DefaultTaskQueueConfig returns a config with default collaborators.
func DefaultTaskQueueConfig() *TaskQueueConfig {
	return &TaskQueueConfig{
		Logger:       &NoOpLogger{},
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
	}
}
