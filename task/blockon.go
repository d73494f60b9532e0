package task

import (
	"github.com/coropath/fibra/future"
)

// BlockOn suspends ctx's fiber on f and returns once f's Request has been
// completed, following a four-step suspension contract:
//  1. build a Request whose callback stores the value and resumes the fiber;
//  2. call f.Run — a synchronous Done skips suspension entirely;
//  3. otherwise install the returned Cancel and switch away;
//  4. on resume, uninstall the cancel and return the stored result.
//
// The completion callback here resumes ctx's worker directly, which is
// only safe when the callback fires on the same OS thread that owns the
// executor — the fast path for local (non-thread-safe) Futures. Futures
// that may complete from another goroutine must use BlockOnCrossThread
// instead.
func BlockOn[T any](ctx *Context, f future.Future[T]) T {
	var result T
	req := future.NewRequest[T](func(v T) {
		result = v
		ctx.clearCancel()
		ctx.worker.Executor.Resume(ctx.worker)
	})

	progress := f.Run(req)
	if v, ok := progress.IsReady(); ok {
		return v
	}

	ctx.installCancel(progress.Cancel())
	ctx.worker.Executor.Suspend(ctx.worker)
	return result
}

// BlockOnCrossThread is BlockOn's thread-safe counterpart: the completion
// callback may run on any goroutine, so instead of resuming directly it
// enqueues ctx's worker onto its executor's resume queue, to be drained by
// whichever goroutine is running that executor's Drive loop.
func BlockOnCrossThread[T any](ctx *Context, f future.Future[T]) T {
	var result T
	req := future.NewRequest[T](func(v T) {
		result = v
		ctx.clearCancel()
		ctx.worker.Executor.EnqueueResume(ctx.worker)
	})

	progress := f.Run(req)
	if v, ok := progress.IsReady(); ok {
		return v
	}

	ctx.installCancel(progress.Cancel())
	ctx.worker.Executor.Suspend(ctx.worker)
	return result
}
