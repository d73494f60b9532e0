// Package amutex implements the three-state async Mutex and the Notify
// primitive built on the wait package's wait-list.
//
// Grounded on the well-known futex-style three-state mutex (unlocked /
// locked / contended) spec.md §4.11 describes — the same shape as
// parking_lot's word mutex — with the wait package's WaitList standing in
// for the futex wait-queue, the way this module replaces every other
// kernel-level primitive the source material assumes.
package amutex

import (
	"runtime"
	"time"

	uatomic "go.uber.org/atomic"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/task"
	"github.com/coropath/fibra/wait"
)

type lockState uint32

const (
	unlocked lockState = iota
	locked
	contended
)

// Mutex is an async, interrupt-cancellable mutual-exclusion lock guarding
// a value of type T. Uncontended
// acquire is a single CAS; contended callers spin briefly then park on a
// thread-safe wait-list.
type Mutex[T any] struct {
	state    uatomic.Uint32
	waiters  *wait.WaitList[struct{}]
	poisoned uatomic.Bool
	value    T
}

// New creates an unlocked, unpoisoned Mutex guarding v.
func New[T any](v T) *Mutex[T] {
	return &Mutex[T]{waiters: wait.NewThreadSafe[struct{}](), value: v}
}

// TryLock attempts an immediate, non-blocking acquire. Returns
// ErrWouldBlock if the mutex is currently held.
func (m *Mutex[T]) TryLock() (*Guard[T], error) {
	if !m.state.CompareAndSwap(uint32(unlocked), uint32(locked)) {
		return nil, ferr.ErrWouldBlock
	}
	if m.poisoned.Load() {
		return &Guard[T]{m: m}, ferr.ErrPoisoned
	}
	return &Guard[T]{m: m}, nil
}

// Lock acquires the mutex, suspending ctx's fiber while contended. A
// pending Interrupt on ctx is delivered as ErrWouldBlock, matching spec.md
// §4.11 ("interrupt-cancellable lock().await returns WouldBlock on
// interrupt"). A non-nil ErrPoisoned alongside a non-nil guard means a
// prior holder panicked while holding the lock; the caller may use the
// guard anyway or propagate the error, then ClearPoison.
func (m *Mutex[T]) Lock(ctx *task.Context) (*Guard[T], error) {
	if m.state.CompareAndSwap(uint32(unlocked), uint32(locked)) {
		if m.poisoned.Load() {
			return &Guard[T]{m: m}, ferr.ErrPoisoned
		}
		return &Guard[T]{m: m}, nil
	}

	spins := 0
	for {
		switch lockState(m.state.Load()) {
		case unlocked:
			// Reacquire directly as Contended, not Locked: we arrived
			// here because the lock was held against us at some point,
			// so another waiter may already be parked behind us and
			// still needs our eventual unlock to wake it.
			if m.state.CompareAndSwap(uint32(unlocked), uint32(contended)) {
				if m.poisoned.Load() {
					return &Guard[T]{m: m}, ferr.ErrPoisoned
				}
				return &Guard[T]{m: m}, nil
			}
			continue
		case locked:
			if spins < 64 {
				spins++
				runtime.Gosched()
				continue
			}
			// Give up spinning: mark the lock Contended so the current
			// holder's Unlock knows to wake us, then park. A CAS race
			// against a concurrent unlock is harmless — if it fails the
			// state has already moved and the next loop iteration
			// re-reads it.
			m.state.CompareAndSwap(uint32(locked), uint32(contended))
		case contended:
			// Already marked; fall through to park.
		}

		res := m.waiters.Notified(ctx, func() bool {
			return lockState(m.state.Load()) != unlocked
		})
		switch res.Err {
		case nil, ferr.ErrCancelled:
			// woken, or our registration was superseded — either way
			// loop back and retry the CAS.
		case ferr.ErrInterrupted:
			return nil, ferr.ErrWouldBlock
		default:
			return nil, res.Err
		}
		spins = 0
	}
}

// LockBlocking is Lock's counterpart for callers with no fiber Context —
// an ordinary OS thread spinning with a backoff, cancellable via
// shouldCancel polled between attempts.
func (m *Mutex[T]) LockBlocking(shouldCancel func() bool) (*Guard[T], error) {
	backoff := time.Microsecond
	for {
		g, err := m.TryLock()
		if err != ferr.ErrWouldBlock {
			return g, err
		}
		if shouldCancel != nil && shouldCancel() {
			return nil, ferr.ErrWouldBlock
		}
		time.Sleep(backoff)
		if backoff < 10*time.Millisecond {
			backoff *= 2
		}
	}
}

// ClearPoison clears the poisoned flag, letting subsequent Lock/TryLock
// calls succeed without ErrPoisoned.
func (m *Mutex[T]) ClearPoison() {
	m.poisoned.Store(false)
}

func (m *Mutex[T]) unlock(poison bool) {
	if poison {
		m.poisoned.Store(true)
	}
	old := lockState(m.state.Swap(uint32(unlocked)))
	if old == contended {
		m.waiters.WakeOne(struct{}{})
	}
}

// Guard grants access to the mutex's protected value while held. Unlock
// must be called exactly once, typically via defer.
type Guard[T any] struct {
	m        *Mutex[T]
	unlocked bool
}

// Value returns a pointer to the guarded value.
func (g *Guard[T]) Value() *T { return &g.m.value }

// Unlock releases the mutex. If called from a deferred position while a
// panic is unwinding through the critical section, the panic is observed
// via recover, the mutex is marked poisoned, and the panic is re-raised —
// this module's equivalent of "dropped while unwinding".
func (g *Guard[T]) Unlock() {
	if g.unlocked {
		return
	}
	g.unlocked = true
	if r := recover(); r != nil {
		g.m.unlock(true)
		panic(r)
	}
	g.m.unlock(false)
}
