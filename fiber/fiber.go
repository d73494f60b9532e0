// Package fiber provides non-preemptive, cooperative context switching
// between independent execution stacks on a single OS thread.
//
// A Fiber owns a machine stack and an opaque saved register context. There is
// no analog to this in the teacher repo — Tangerg/lynx is goroutine-based
// throughout — so this package is grounded directly on spec.md §3/§4.1 and on
// the well-known "fcontext" stack-switch technique (save callee-saved
// registers + SP, RET through the other stack to resume it), written the way
// the rest of this module writes Go: small files, one concern per file,
// log/slog for the rare diagnostic, golang.org/x/sys/unix for the raw
// mmap/mprotect/madvise syscalls spec.md §6 calls out as required platform
// intrinsics.
package fiber

import (
	"fmt"
	"log/slog"
)

// Logger is the package-level logger for fiber lifecycle events (pool
// recycle/unmap decisions). Overridable with SetLogger, defaulting to
// slog.Default() the way core/scheduler and core/job log in the teacher.
var Logger = slog.Default()

// SetLogger overrides the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// State is the lifecycle state of a Fiber.
type State int

const (
	// StateIdle is a created-but-not-started fiber, or one returned to a pool.
	StateIdle State = iota
	// StateRunning is a fiber currently executing on its thread.
	StateRunning
	// StateSuspended is a fiber that has switched away but is still alive.
	StateSuspended
	// StateExited is a fiber whose entry function has returned or that has
	// been torn down via the intercept mechanism.
	StateExited
)

// Entry is the top-level function a fiber runs when started.
type Entry func(arg any)

// Fiber is a stackful coroutine: a real machine stack plus a saved register
// context. Invariant: at most one fiber per thread executes at any time.
type Fiber struct {
	stack *stack
	ctx   sysContext
	state State

	entry Entry
	arg   any

	// trampolineArg is populated by SetStart and read once by the assembly
	// trampoline, fiberTrampoline, which hands it to runEntry below.
	trampolineArg *trampolineArg

	// exitCleanup is set by Exit just before the final switch away from a
	// fiber that will never run again. Switch runs it on the resumer's
	// stack immediately after control returns to it — see switch.go.
	exitCleanup func()
}

// trampolineArg is the payload popped off the fresh stack by the platform
// trampoline. Kept as a heap-allocated indirection rather than raw stack
// words so the Go side can type-check entry/arg without unsafe casts; the
// assembly only ever sees a single pointer to this struct.
type trampolineArg struct {
	fiber *Fiber
}

// New allocates a stack of the given size (rounded up to a multiple of
// 4 KiB) and a zero-initialized saved context. The fiber is created detached:
// it does not run until SetStart + a switch into it.
func New(stackSize int) (*Fiber, error) {
	st, err := newStack(stackSize)
	if err != nil {
		return nil, fmt.Errorf("fiber: allocate stack: %w", err)
	}
	return &Fiber{stack: st, state: StateIdle}, nil
}

// SetStart records the entry/arg pair on the fiber, writes a pointer to its
// trampolineArg at the top of the fiber's stack, and points its saved
// program counter at the platform trampoline. Only legal on
// a fiber that is not currently running.
func (f *Fiber) SetStart(entry Entry, arg any) {
	if f.state == StateRunning {
		panic("fiber: SetStart called on a running fiber")
	}
	f.entry = entry
	f.arg = arg
	f.trampolineArg = &trampolineArg{fiber: f}
	f.ctx = newTrampolineContext(f.stack, f.trampolineArg)
	f.state = StateIdle
}

// runEntry is invoked by the assembly trampoline (fiberTrampoline) once
// the new stack is live. It never returns to the trampoline normally: it
// always ends by exiting the fiber through the owning Executor.
func runEntry(arg *trampolineArg) {
	f := arg.fiber
	f.state = StateRunning
	Logger.Debug("fiber entry starting", "stack_bytes", len(f.stack.mem))
	f.entry(f.arg)
	// entry is expected to call Executor.Exit before returning; if it
	// returns normally that is itself a programming error in the caller,
	// since nothing is left to switch back to deterministically. Mark the
	// fiber exited so a pool never hands out a fiber whose entry fell off
	// the end without going through the drop-switch machinery.
	f.state = StateExited
	panic("fiber: entry function returned without calling Executor.Exit")
}

// Release unmaps the fiber's stack (the pool path, Pool.put, calls
// adviseFree instead while the pool has room).
// Must only be called once the fiber is no longer referenced by any
// in-flight switch — see pool.go's intercept-based exit for why a fiber
// cannot do this to its own stack while running on it.
func (f *Fiber) Release() error {
	return f.stack.unmap()
}

// adviseFree marks the stack's pages reusable without unmapping them, the
// cheap path taken when the fiber pool still has room.
func (f *Fiber) adviseFree() error {
	return f.stack.adviseFree()
}

// StackBytes reports the fiber's stack size, for pool accounting and tests.
func (f *Fiber) StackBytes() int {
	return len(f.stack.mem)
}

// State reports the fiber's current lifecycle state.
func (f *Fiber) State() State { return f.state }
