package core

import "context"

// =============================================================================
// Task and Reply Pattern
// =============================================================================

// AsyncAndReply runs task on q, then posts reply to replyQueue. If task
// panics the reply is never posted.
//
// The classic use is background work with a completion posted back to the
// main queue:
//
//	dispatch.AsyncAndReply(worker, loadFile, main, updateView)
func AsyncAndReply(q Queue, task Task, replyQueue Queue, reply Task) {
	q.Async(func(ctx context.Context) {
		if task != nil {
			task(ctx)
		}
		replyQueue.Async(reply)
	})
}

// AsyncAndReplyWithResult runs task on q and hands its result to reply on
// replyQueue. If task panics the reply is never posted.
func AsyncAndReplyWithResult[T any](
	q Queue,
	task func(ctx context.Context) T,
	replyQueue Queue,
	reply func(ctx context.Context, result T),
) {
	q.Async(func(ctx context.Context) {
		result := task(ctx)
		replyQueue.Async(func(rctx context.Context) {
			reply(rctx, result)
		})
	})
}
