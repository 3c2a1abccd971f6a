package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestAsyncAndReply_ReplyRunsAfterTask verifies cross-queue ordering
// Given: A worker queue and a reply queue
// When: AsyncAndReply runs a task on the first
// Then: The reply runs on the second, not before the task
func TestAsyncAndReply_ReplyRunsAfterTask(t *testing.T) {
	worker := NewSerialQueue("reply-worker", QoSNormal)
	replyQueue := NewSerialQueue("reply-main", QoSNormal)
	ctx := context.Background()

	var taskAt, replyAt time.Time
	done := make(chan struct{})

	AsyncAndReply(worker,
		func(ctx context.Context) { taskAt = time.Now() },
		replyQueue,
		func(ctx context.Context) {
			replyAt = time.Now()
			close(done)
		})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reply")
	}

	if replyAt.Before(taskAt) {
		t.Errorf("reply at %v ran before task at %v", replyAt, taskAt)
	}

	worker.FlushAndTeardown(ctx)
	replyQueue.FlushAndTeardown(ctx)
}

// TestAsyncAndReply_PanickedTaskSkipsReply verifies the panic contract
// Given: A task that panics
// When: AsyncAndReply runs it
// Then: The reply is never posted
func TestAsyncAndReply_PanickedTaskSkipsReply(t *testing.T) {
	worker := newQuietSerialQueue("panic-reply-worker")
	replyQueue := NewSerialQueue("panic-reply-main", QoSNormal)
	ctx := context.Background()

	var replied atomic.Bool
	AsyncAndReply(worker,
		func(ctx context.Context) { panic("task boom") },
		replyQueue,
		func(ctx context.Context) { replied.Store(true) })

	time.Sleep(100 * time.Millisecond)

	if replied.Load() {
		t.Error("reply ran even though the task panicked")
	}

	worker.FlushAndTeardown(ctx)
	replyQueue.FlushAndTeardown(ctx)
}

// TestAsyncAndReplyWithResult_PassesValue verifies the generic variant
// Given: A task producing a value
// When: AsyncAndReplyWithResult runs it
// Then: The reply receives that value on the reply queue
func TestAsyncAndReplyWithResult_PassesValue(t *testing.T) {
	worker := NewSerialQueue("result-worker", QoSNormal)
	replyQueue := NewSerialQueue("result-main", QoSNormal)
	ctx := context.Background()

	result := make(chan int, 1)
	AsyncAndReplyWithResult(worker,
		func(ctx context.Context) int { return 42 },
		replyQueue,
		func(ctx context.Context, value int) { result <- value })

	select {
	case got := <-result:
		if got != 42 {
			t.Errorf("reply value = %d, want 42", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reply value")
	}

	worker.FlushAndTeardown(ctx)
	replyQueue.FlushAndTeardown(ctx)
}
