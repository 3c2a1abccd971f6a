package dispatch

import (
	"github.com/Swind/go-dispatch-queue/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the dispatch package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// TaskID identifies a submitted task; NullTaskID is never assigned
type TaskID = core.TaskID

// Queue is the shared front-end surface of SerialQueue and PoolQueue
type Queue = core.Queue

// SerialQueue runs tasks one at a time on a lazily-started worker
type SerialQueue = core.SerialQueue

// PoolQueue runs tasks on N workers with bounded parallelism
type PoolQueue = core.PoolQueue

// TaskQueue is the engine shared by both front-ends
type TaskQueue = core.TaskQueue

// QueueListener observes empty/non-empty edges of a queue
type QueueListener = core.QueueListener

// QoSClass is the advisory priority hint for queue workers
type QoSClass = core.QoSClass

// RepeatingHandle controls a repeating task
type RepeatingHandle = core.RepeatingHandle

// NullTaskID is returned by submissions after teardown
const NullTaskID = core.NullTaskID

// QoS constants
const (
	QoSLowest QoSClass = core.QoSLowest
	QoSLow    QoSClass = core.QoSLow
	QoSNormal QoSClass = core.QoSNormal
	QoSHigh   QoSClass = core.QoSHigh
	QoSMax    QoSClass = core.QoSMax
)

// Convenience constructors and helpers
var (
	NewSerialQueue = core.NewSerialQueue
	NewPoolQueue   = core.NewPoolQueue
	NewTaskQueue   = core.NewTaskQueue

	// CurrentQueue retrieves the queue a task context belongs to
	CurrentQueue = core.CurrentQueue

	// AsyncRepeating re-runs a task at a fixed interval
	AsyncRepeating = core.AsyncRepeating

	// AsyncAndReply runs a task on one queue and a reply on another
	AsyncAndReply = core.AsyncAndReply
)

// Create builds the default queue kind for a debug name and QoS hint:
// a serial queue.
func Create(name string, qos QoSClass) Queue {
	return core.NewSerialQueue(name, qos)
}

// =============================================================================
// Process-wide main queue handle
// =============================================================================

// mainQueue is published without synchronization: set it during process
// startup, before any concurrent Main() readers exist.
var mainQueue Queue

// SetMain designates the process-wide main queue. Passing nil clears it.
func SetMain(q Queue) {
	mainQueue = q
}

// Main returns the process-wide main queue, or nil if none was set.
func Main() Queue {
	return mainQueue
}
