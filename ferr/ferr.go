// Package ferr holds the error taxonomy raised across the runtime, so that
// callers can use errors.Is regardless of which package produced the error.
package ferr

import (
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is observed by an await when the task's Context was
	// interrupted while blocked, or when the next check_interrupt sees a
	// pending interrupt.
	ErrInterrupted = errors.New("fibra: task interrupted")

	// ErrWouldBlock is returned by a try_* operation that would otherwise
	// suspend, or by an async operation cancelled before it completed.
	ErrWouldBlock = errors.New("fibra: would block")

	// ErrClosed is returned by a wait-list, channel, or mutex that has
	// been closed or poisoned past recovery.
	ErrClosed = errors.New("fibra: closed")

	// ErrCancelled is returned to a waiter superseded by a later waiter on
	// the same atomic single-waiter slot.
	ErrCancelled = errors.New("fibra: wait superseded")

	// ErrPoisoned is returned by Mutex.Lock when a prior guard-holder
	// panicked while holding the lock.
	ErrPoisoned = errors.New("fibra: mutex poisoned")

	// ErrFull is returned by a non-blocking send against a full channel.
	ErrFull = errors.New("fibra: channel full")

	// ErrEmpty is returned by a non-blocking recv against an empty channel.
	ErrEmpty = errors.New("fibra: channel empty")

	// ErrNoCancelInstalled is the precondition violation for calling
	// Context.Interrupt when the task isn't currently blocked on a Future.
	ErrNoCancelInstalled = errors.New("fibra: interrupt with no cancel installed")
)

// Lagged is returned by a broadcast receiver that fell behind the
// producer by more than the ring's capacity.
type Lagged struct {
	N uint64
}

func (l *Lagged) Error() string {
	return fmt.Sprintf("fibra: broadcast receiver lagged by %d messages", l.N)
}

// ErrLagged builds a Lagged error for n missed messages.
func ErrLagged(n uint64) error {
	return &Lagged{N: n}
}

// AsLagged reports whether err is a Lagged error and returns it.
func AsLagged(err error) (*Lagged, bool) {
	var l *Lagged
	if errors.As(err, &l) {
		return l, true
	}
	return nil, false
}
