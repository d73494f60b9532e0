// Package branch implements select/join of two futures from a single
// parent task.
//
// Grounded on the teacher's flow.Branch (flow/branch.go) for the name and
// the two-child shape, though the teacher's Branch resolves a named
// workflow edge rather than racing two in-flight operations — the actual
// completion/cancel machinery here is original to spec.md §4.12, since
// nothing in the pack drives two Futures concurrently with cancel-on-first
// semantics. go.uber.org/multierr (a teacher dependency, future/go.mod)
// combines the two children's cancel errors when the parent itself is
// cancelled.
package branch

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/coropath/fibra/future"
)

type branchState int

const (
	statePending branchState = iota
	stateDone
)

type childSlot[T any] struct {
	state  branchState
	value  T
	cancel future.Cancel
}

// Output is delivered once both children of a Branch have reached a
// terminal state. Both First and Second are set: a cancelled child still
// completes its request, and its field holds the value it completed with.
type Output[A, B any] struct {
	First  *A
	Second *B
}

// Branch drives two futures concurrently. Completion of either invokes
// the corresponding shouldCancel predicate; if it reports true, the
// sibling (if still pending) is cancelled. The parent completes once both
// children are terminal.
type Branch[A, B any] struct {
	f1 future.Future[A]
	f2 future.Future[B]

	shouldCancel1 func(A) bool
	shouldCancel2 func(B) bool

	mu         sync.Mutex
	slot1      childSlot[A]
	slot2      childSlot[B]
	cancelling bool
	req        *future.Request[Output[A, B]]
}

// New builds a Branch with custom should-cancel predicates for each side.
// Select and Join below cover the two common cases.
func New[A, B any](f1 future.Future[A], f2 future.Future[B], shouldCancel1 func(A) bool, shouldCancel2 func(B) bool) *Branch[A, B] {
	return &Branch[A, B]{f1: f1, f2: f2, shouldCancel1: shouldCancel1, shouldCancel2: shouldCancel2}
}

// Select races f1 and f2: whichever completes first cancels the other.
func Select[A, B any](f1 future.Future[A], f2 future.Future[B]) *Branch[A, B] {
	return New[A, B](f1, f2, func(A) bool { return true }, func(B) bool { return true })
}

// Join runs f1 and f2 to completion without ever cancelling either.
func Join[A, B any](f1 future.Future[A], f2 future.Future[B]) *Branch[A, B] {
	return New[A, B](f1, f2, func(A) bool { return false }, func(B) bool { return false })
}

// Run implements future.Future[Output[A, B]].
func (b *Branch[A, B]) Run(req *future.Request[Output[A, B]]) future.Progress[Output[A, B]] {
	b.req = req

	r1 := future.NewRequest[A](b.onComplete1)
	p1 := b.f1.Run(r1)
	if v, ok := p1.IsReady(); ok {
		b.slot1 = childSlot[A]{state: stateDone, value: v}
	} else {
		b.slot1 = childSlot[A]{state: statePending, cancel: p1.Cancel()}
	}

	r2 := future.NewRequest[B](b.onComplete2)
	p2 := b.f2.Run(r2)
	if v, ok := p2.IsReady(); ok {
		b.slot2 = childSlot[B]{state: stateDone, value: v}
	} else {
		b.slot2 = childSlot[B]{state: statePending, cancel: p2.Cancel()}
	}

	if out, done := b.finished(); done {
		return future.Done(out)
	}
	return future.Pending[Output[A, B]](b.cancel)
}

// finished reports the combined output once neither child is pending.
// Only safe to call from Run (no concurrency yet) or under b.mu.
func (b *Branch[A, B]) finished() (Output[A, B], bool) {
	if b.slot1.state == statePending || b.slot2.state == statePending {
		return Output[A, B]{}, false
	}
	var out Output[A, B]
	if b.slot1.state == stateDone {
		v := b.slot1.value
		out.First = &v
	}
	if b.slot2.state == stateDone {
		v := b.slot2.value
		out.Second = &v
	}
	return out, true
}

func (b *Branch[A, B]) onComplete1(v A) {
	b.mu.Lock()
	b.slot1 = childSlot[A]{state: stateDone, value: v}
	var cancelSibling future.Cancel
	if !b.cancelling && b.slot2.state == statePending && b.shouldCancel1 != nil && b.shouldCancel1(v) {
		cancelSibling = b.slot2.cancel
	}
	out, done := b.finished()
	req := b.req
	b.mu.Unlock()

	if cancelSibling != nil {
		_ = cancelSibling()
	}
	if done {
		req.Complete(out)
	}
}

func (b *Branch[A, B]) onComplete2(v B) {
	b.mu.Lock()
	b.slot2 = childSlot[B]{state: stateDone, value: v}
	var cancelSibling future.Cancel
	if !b.cancelling && b.slot1.state == statePending && b.shouldCancel2 != nil && b.shouldCancel2(v) {
		cancelSibling = b.slot1.cancel
	}
	out, done := b.finished()
	req := b.req
	b.mu.Unlock()

	if cancelSibling != nil {
		_ = cancelSibling()
	}
	if done {
		req.Complete(out)
	}
}

// cancel is the Cancel handle returned to whoever drives the Branch
// future. It cancels both still-pending children, setting cancelling so
// the completion handlers above do not re-enter sibling-cancel logic
// while this cancellation is already in flight.
func (b *Branch[A, B]) cancel() error {
	b.mu.Lock()
	b.cancelling = true
	c1, pending1 := b.slot1.cancel, b.slot1.state == statePending
	c2, pending2 := b.slot2.cancel, b.slot2.state == statePending
	b.mu.Unlock()

	var err error
	if pending1 && c1 != nil {
		err = multierr.Append(err, c1())
	}
	if pending2 && c2 != nil {
		err = multierr.Append(err, c2())
	}
	return err
}
