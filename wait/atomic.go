package wait

import (
	uatomic "go.uber.org/atomic"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/future"
)

// AtomicWaiter is a single-slot lock-free notifier holding at most one
// live request pointer. Backed by
// go.uber.org/atomic's generic Pointer, a teacher dependency (future/go.mod)
// used here for its typed CompareAndSwap/Swap instead of raw
// unsafe.Pointer juggling over sync/atomic.
//
// Rule: at most one waiter at a time — registering a second supersedes
// the first with a Cancelled completion. Used for oneshot channel halves.
type AtomicWaiter[T any] struct {
	slot uatomic.Pointer[future.Request[Result[T]]]
	// closed is a sentinel pointer unique to this instance, standing in
	// for spec.md §4.6's "all-ones address" closed encoding.
	closed *future.Request[Result[T]]
}

// NewAtomicWaiter returns an idle (not closed, no waiter) AtomicWaiter.
func NewAtomicWaiter[T any]() *AtomicWaiter[T] {
	return &AtomicWaiter[T]{closed: &future.Request[Result[T]]{}}
}

// Wait registers req as the sole current waiter. If the slot already held
// a live waiter, that waiter is immediately completed with ErrCancelled
// (superseded). If the slot was closed, req's slot is never installed and
// Wait returns Done with ErrClosed synchronously. Otherwise it returns
// Pending with a Cancel that, if it still finds req installed, uninstalls
// it and completes it with ErrInterrupted.
func (w *AtomicWaiter[T]) Wait(req *future.Request[Result[T]]) future.Progress[Result[T]] {
	prev := w.slot.Swap(req)
	if prev == w.closed {
		w.slot.Store(w.closed)
		return future.Done(Error[T](ferr.ErrClosed))
	}
	if prev != nil {
		prev.Complete(Error[T](ferr.ErrCancelled))
	}
	return future.Pending[Result[T]](func() error {
		if w.slot.CompareAndSwap(req, nil) {
			req.Complete(Error[T](ferr.ErrInterrupted))
		}
		return nil
	})
}

// Run implements future.Future[Result[T]] by delegating to Wait, so an
// AtomicWaiter can be passed directly to task.BlockOn.
func (w *AtomicWaiter[T]) Run(req *future.Request[Result[T]]) future.Progress[Result[T]] {
	return w.Wait(req)
}

// Wake completes the current waiter, if any, with value and clears the
// slot. A no-op if the slot is empty or closed.
func (w *AtomicWaiter[T]) Wake(value T) {
	prev := w.slot.Swap(nil)
	switch {
	case prev == w.closed:
		w.slot.Store(w.closed)
	case prev != nil:
		prev.Complete(Ok(value))
	}
}

// Close marks the waiter permanently closed, completing any currently
// registered waiter with value first. Every
// subsequent Wait returns Done(ErrClosed) immediately.
func (w *AtomicWaiter[T]) Close(value T) {
	prev := w.slot.Swap(w.closed)
	if prev != nil && prev != w.closed {
		prev.Complete(Ok(value))
	}
}

// CloseErr is Close's counterpart for the case where the channel is being
// torn down rather than delivering a final value: any currently
// registered waiter is completed with err instead of a value.
func (w *AtomicWaiter[T]) CloseErr(err error) {
	prev := w.slot.Swap(w.closed)
	if prev != nil && prev != w.closed {
		prev.Complete(Error[T](err))
	}
}
