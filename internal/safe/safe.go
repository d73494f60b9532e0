// Package safe provides panic recovery for the completion callbacks that the
// Future protocol requires never to unwind, and a
// MaybePanic wrapper that lets a captured panic travel from the callback that
// caught it to whichever goroutine/fiber eventually joins the task.
//
// Adapted from the teacher's pkg/safe.Go/WithRecover/PanicError: same
// capture-timestamp-and-stack shape, generalized into a value any joiner can
// re-raise instead of one only invoked as an error-handler callback.
package safe

import (
	"fmt"
	"runtime/debug"
	"time"
)

// PanicError carries a recovered panic's payload and stack trace.
type PanicError struct {
	Time  time.Time
	Info  any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\ntimestamp: %s\nstack:\n%s",
		e.Info, e.Time.Format(time.RFC3339Nano), e.Stack)
}

func newPanicError(info any) *PanicError {
	return &PanicError{
		Time:  time.Now(),
		Info:  info,
		Stack: debug.Stack(),
	}
}

// MaybePanic is a result-like wrapper carrying either a value of type T or a
// captured panic. A completion callback that runs user code (a Clone impl in
// a wake-all fan-out, a block_on resume closure) wraps its outcome in a
// MaybePanic instead of letting the panic escape the callback.
type MaybePanic[T any] struct {
	Value T
	Panic *PanicError
}

// Ok wraps a plain value with no panic.
func Ok[T any](v T) MaybePanic[T] {
	return MaybePanic[T]{Value: v}
}

// Recover re-raises the captured panic, if any; otherwise it is a no-op.
// Call it from the joining side (never from inside the completion callback
// itself, which must not unwind).
func (m MaybePanic[T]) Recover() {
	if m.Panic != nil {
		panic(m.Panic)
	}
}

// Run executes fn, converting any panic into a MaybePanic instead of letting
// it propagate. fn's own return value is only valid when no panic occurred.
func Run[T any](fn func() T) (result MaybePanic[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = MaybePanic[T]{Panic: newPanicError(r)}
		}
	}()
	result = MaybePanic[T]{Value: fn()}
	return
}

// WithRecover wraps fn so that a panic is captured and handed to panicFns
// instead of unwinding the caller. Mirrors the teacher's safe.WithRecover.
func WithRecover(fn func(), panicFns ...func(error)) func() {
	if fn == nil {
		return fn
	}
	return func() {
		defer func() {
			if r := recover(); r != nil {
				err := newPanicError(r)
				for _, h := range panicFns {
					h(err)
				}
			}
		}()
		fn()
	}
}

// Go launches fn on a new goroutine with built-in panic recovery, matching
// the teacher's safe.Go.
func Go(fn func(), panicFns ...func(error)) {
	go WithRecover(fn, panicFns...)()
}
