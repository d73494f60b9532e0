// Package future implements the one-shot, callback-driven Future contract
// that every suspension point in the runtime is built on.
//
// Unlike the teacher's future.Future[V] (a goroutine-backed, poll-by-channel
// value with a five-state lifecycle), a Future here is a single method, Run,
// called at most once: it either completes synchronously (Done) or hands
// back a Cancel and completes later through the Request's callback. The
// teacher's once-guarded completion (future.Future[V].complete, guarded by
// sync.Once) is kept as the discipline behind Request.Complete, collapsed
// from five states (New/Running/Success/Failed/Cancelled) to the two the
// protocol actually needs: pending and completed.
package future

import (
	"github.com/coropath/fibra/internal/safe"
)

// Cancel is a Future's companion handle to request early termination. It is
// best-effort and consuming: calling it twice is a precondition violation
//. After it returns, the caller must still wait for the
// completion callback to fire — cancellation is asynchronous.
type Cancel func() error

// Request carries the completion callback of an in-flight Future. The
// Request's address is the identity key for the operation: at most one
// completion per Request. The callback must never unwind; use
// safe.WithRecover around any user code it invokes.
type Request[T any] struct {
	onComplete func(T)
	completed  bool
}

// NewRequest builds a Request whose callback is onComplete. onComplete must
// not panic and must not block.
func NewRequest[T any](onComplete func(T)) *Request[T] {
	safe.Assert(onComplete != nil, "request callback must not be nil")
	return &Request[T]{onComplete: onComplete}
}

// Complete invokes the callback exactly once. A second call is a
// precondition violation (double-complete, spec.md §4.4.7) and panics in
// debug builds; in release builds it is silently dropped, matching
// "release builds reach unreachable-hints."
func (r *Request[T]) Complete(value T) {
	safe.Assert(!r.completed, "double-complete on Request")
	if r.completed {
		return
	}
	r.completed = true
	r.onComplete(value)
}

// Progress is the result of calling Future.Run: either the operation
// completed synchronously (Done) or it is in flight and the caller is
// handed a Cancel (Pending).
type Progress[T any] struct {
	ready  bool
	value  T
	cancel Cancel
}

// Done builds a Progress representing synchronous completion with v. The
// callback on the Request passed to Run must not be invoked in this case.
func Done[T any](v T) Progress[T] {
	return Progress[T]{ready: true, value: v}
}

// Pending builds a Progress representing an in-flight operation, with its
// companion Cancel.
func Pending[T any](c Cancel) Progress[T] {
	safe.Assert(c != nil, "pending progress requires a non-nil cancel")
	if safe.Debug {
		inner := c
		called := false
		c = func() error {
			safe.Assert(!called, "double-cancel on Cancel")
			called = true
			return inner()
		}
	}
	return Progress[T]{cancel: c}
}

// IsReady reports whether the Future completed synchronously, and if so
// returns its value.
func (p Progress[T]) IsReady() (T, bool) {
	return p.value, p.ready
}

// Cancel returns the companion Cancel handle for a Pending progress, or nil
// if the progress was Done.
func (p Progress[T]) Cancel() Cancel {
	return p.cancel
}

// Future is an opaque value whose sole operation is Run. Future is one-shot:
// Run may be called at most once per value. If Run panics,
// the Future is considered not in progress and the Request's callback must
// not be called.
type Future[T any] interface {
	Run(req *Request[T]) Progress[T]
}

// Func adapts a plain function into a Future, the way a single-expression
// Task often needs no dedicated type.
type Func[T any] func(req *Request[T]) Progress[T]

func (f Func[T]) Run(req *Request[T]) Progress[T] { return f(req) }

// Ready returns a Future that always completes synchronously with v. Useful
// for composing with Branch/Select when one side is already known.
func Ready[T any](v T) Future[T] {
	return Func[T](func(*Request[T]) Progress[T] {
		return Done(v)
	})
}
