package amutex

import (
	"github.com/coropath/fibra/task"
	"github.com/coropath/fibra/wait"
)

// Notify lets a task wait for an external event and have every waiter
// registered before the notification wake with the same value. NewLocalNotify is for single-threaded use only; NewNotify
// is safe across goroutines.
type Notify[T any] struct {
	waiters *wait.WaitList[T]
}

// NewNotify creates a thread-safe Notify.
func NewNotify[T any]() *Notify[T] {
	return &Notify[T]{waiters: wait.NewThreadSafe[T]()}
}

// NewLocalNotify creates a Notify usable only from a single executor thread.
func NewLocalNotify[T any]() *Notify[T] {
	return &Notify[T]{waiters: wait.NewLocal[T]()}
}

// Wait suspends ctx's fiber until the next Notify call.
func (n *Notify[T]) Wait(ctx *task.Context) (T, error) {
	res := n.waiters.Notified(ctx, func() bool { return true })
	return res.Value, res.Err
}

// Notify wakes every waiter currently registered with v.
func (n *Notify[T]) Notify(v T) {
	n.waiters.WakeAll(v)
}

// Close permanently closes the Notify. Waiters already parked are woken
// with v and a nil error; every later Wait call returns ErrClosed.
func (n *Notify[T]) Close(v T) {
	n.waiters.Close(v)
}
