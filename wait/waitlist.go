package wait

import (
	"sync"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/future"
	"github.com/coropath/fibra/internal/safe"
	"github.com/coropath/fibra/list"
	"github.com/coropath/fibra/task"
)

// noopLocker backs the local (single-threaded) wait-list variant: the
// executor's own cooperative exclusion already serializes access, so no
// real lock is needed.
type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// WaitList is a linked list of parked waiters, each owned by a caller's
// stack frame. The same logic serves
// both variants spec.md describes: construct with NewLocal for a
// single-threaded list or NewThreadSafe for one guarded across goroutines.
//
// The thread-safe variant uses a sync.Mutex rather than a literal spin
// lock — the source material's bounded-iteration spinlock assumes direct
// control over scheduling that the Go runtime does not expose safely, and
// a go-routine busy-spinning defeats the runtime's own scheduler
// cooperation, so a mutex is the idiomatic substitute.
type WaitList[T any] struct {
	lk          sync.Locker
	ll          *list.List[*future.Request[Result[T]]]
	closed      bool
	crossThread bool
}

// NewLocal returns a wait-list meant to be touched from a single fiber's
// executor thread only.
func NewLocal[T any]() *WaitList[T] {
	return &WaitList[T]{lk: noopLocker{}, ll: list.New[*future.Request[Result[T]]]()}
}

// NewThreadSafe returns a wait-list safe for completion and registration
// from any goroutine. Because a waker may run on a goroutine other than
// the one driving the parked fiber's executor, Notified suspends via
// task.BlockOnCrossThread rather than task.BlockOn.
func NewThreadSafe[T any]() *WaitList[T] {
	return &WaitList[T]{lk: &sync.Mutex{}, ll: list.New[*future.Request[Result[T]]](), crossThread: true}
}

// Notified parks ctx's fiber on the wait-list unless shouldBlock returns
// false (in which case it returns Cancelled without blocking) or the list
// is already closed. shouldBlock
// runs under the list lock so it can consult state that close/wake_* also
// touch without racing.
func (w *WaitList[T]) Notified(ctx *task.Context, shouldBlock func() bool) Result[T] {
	w.lk.Lock()
	if w.closed {
		w.lk.Unlock()
		return Error[T](ferr.ErrClosed)
	}
	if !shouldBlock() {
		w.lk.Unlock()
		return Error[T](ferr.ErrCancelled)
	}

	node := list.NewNode[*future.Request[Result[T]]](nil)
	locked := true
	unlock := func() {
		if locked {
			w.lk.Unlock()
			locked = false
		}
	}
	defer unlock()

	f := future.Func[Result[T]](func(req *future.Request[Result[T]]) future.Progress[Result[T]] {
		node.Value = req
		w.ll.Append(node)
		// Linking must happen before the lock is released, otherwise a
		// waker on another goroutine could observe neither the old nor
		// the new state. Unlocking here, inside Run but before Pending
		// is returned to block_on, keeps the whole link atomic with
		// respect to WakeOne/WakeAll/Close.
		unlock()
		return future.Pending[Result[T]](func() error {
			w.lk.Lock()
			w.ll.Unlink(node)
			w.lk.Unlock()
			req.Complete(Error[T](ferr.ErrInterrupted))
			return nil
		})
	})
	if w.crossThread {
		return task.BlockOnCrossThread[Result[T]](ctx, f)
	}
	return task.BlockOn[Result[T]](ctx, f)
}

// WakeOne completes the front waiter, if any, with value. Wake order is FIFO by construction.
func (w *WaitList[T]) WakeOne(value T) {
	w.lk.Lock()
	n := w.ll.PopFront()
	w.lk.Unlock()
	if n != nil && n.Value != nil {
		n.Value.Complete(Ok(value))
	}
}

// WakeAll completes every currently parked waiter with value. Each completion is isolated with
// safe.WithRecover so a panicking completion cannot abort the rest of the
// chain, mirroring the source material's "catch_unwind around each clone."
func (w *WaitList[T]) WakeAll(value T) {
	w.lk.Lock()
	local := list.New[*future.Request[Result[T]]]()
	w.ll.MoveElements(local)
	w.lk.Unlock()

	for {
		n := local.PopFront()
		if n == nil {
			break
		}
		req := n.Value
		if req == nil {
			continue
		}
		safe.WithRecover(func() {
			req.Complete(Ok(value))
		})()
	}
}

// Close marks the wait-list permanently closed and wakes every currently
// parked waiter with value. Close is
// observed by Notified under the same lock it is written under, so a
// close can never be missed by a registration racing it.
func (w *WaitList[T]) Close(value T) {
	w.lk.Lock()
	w.closed = true
	w.lk.Unlock()
	w.WakeAll(value)
}
