// Package task implements the per-task Context and the block_on bridge,
// Spawn, and JoinHandle built on top of it.
//
// Context carries per-task scheduling state (a cooperative yield budget,
// interrupt flag, guard depth, cancel handle, and an opaque runtime tag)
// the way a bounded worker scheduler tracks its in-flight work; its
// panic/error conventions follow internal/safe, and its logging follows
// the rest of this module's slog usage.
package task

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/coropath/fibra/executor"
	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/internal/safe"
)

// DefaultBudget is the cooperative yield budget a fresh Context starts
// with.
const DefaultBudget uint16 = 128

// Logger is the package-level logger for interrupt/guard diagnostics.
var Logger = slog.Default()

// SetLogger overrides the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// Context is the per-task state async code observes and manipulates:
// suspend/resume (via its Worker), the installed cancel of whatever Future
// it is currently blocked on, its interrupt flag and guard depth, and a
// cooperative budget counter.
//
// Invariant: cancel is non-nil iff the task is currently suspended inside
// BlockOn.
type Context struct {
	worker *executor.Worker

	budget      uint16
	interrupted bool
	guards      uint32

	cancel     func() error
	runtimeTag uint32

	// traceID correlates this task's log lines across suspend/resume
	// edges; it is never used for identity or equality, only slog
	// correlation, the way the pack's providers/vectorstores generate
	// ids with google/uuid.
	traceID uuid.UUID
}

// New creates a Context hosted by worker, with the default budget, no
// installed cancel, and a fresh trace id for log correlation.
func New(w *executor.Worker) *Context {
	return &Context{worker: w, budget: DefaultBudget, traceID: uuid.New()}
}

// TraceID returns the task's correlation id, stable for the task's
// lifetime and suitable as a slog attribute across every suspend/resume
// this Context goes through.
func (c *Context) TraceID() uuid.UUID { return c.traceID }

// Worker returns the worker hosting this context.
func (c *Context) Worker() *executor.Worker { return c.worker }

// RuntimeTag returns the truncated type hash used by downcasting to the
// concrete environment.
func (c *Context) RuntimeTag() uint32 { return c.runtimeTag }

// SetRuntimeTag installs the tag a concrete runtime environment stamps on
// contexts it creates.
func (c *Context) SetRuntimeTag(tag uint32) { c.runtimeTag = tag }

// installCancel records the Cancel of the Future currently being awaited.
// Called by BlockOn immediately after a Pending result; cleared once the
// wait resolves. Only one cancel may be installed at a time.
func (c *Context) installCancel(cancel func() error) {
	if c.cancel != nil {
		safe.Assert(false, "task: installCancel called while a cancel is already installed")
	}
	c.cancel = cancel
}

func (c *Context) clearCancel() {
	c.cancel = nil
}

// Interrupted reports whether this task has a pending interrupt that is
// not currently suppressed by a held guard.
func (c *Context) Interrupted() bool {
	if c.guards > 0 {
		return false
	}
	return c.interrupted
}

// Interrupt requests cancellation of this task. If guards are held, delivery is deferred — the flag is
// still set, so a later check (or guard release) observes it, but the
// installed cancel, if any, is not invoked yet. Interrupt requires the
// task be currently blocked on a Future; calling it with no cancel
// installed and no guard held is a precondition violation.
func (c *Context) Interrupt() error {
	c.interrupted = true
	if c.guards > 0 {
		Logger.Debug("interrupt deferred by guard", "trace_id", c.traceID, "guards", c.guards)
		return nil
	}
	if c.cancel == nil {
		safe.Assert(false, "task: Interrupt called with no cancel installed")
		return ferr.ErrNoCancelInstalled
	}
	cancel := c.cancel
	c.cancel = nil
	return cancel()
}

// ClearInterrupt resets the interrupt flag without inspecting it.
func (c *Context) ClearInterrupt() { c.interrupted = false }

// TakeInterrupt reads and clears the interrupt flag in one step.
func (c *Context) TakeInterrupt() bool {
	v := c.interrupted
	c.interrupted = false
	return v
}

// CheckInterruptTake reads-and-clears the interrupt flag, returning
// ErrInterrupted if it was set.
func (c *Context) CheckInterruptTake() error {
	if c.TakeInterrupt() {
		return ferr.ErrInterrupted
	}
	return nil
}

// CurrentBudget returns the task's remaining cooperative yield budget.
func (c *Context) CurrentBudget() uint16 { return c.budget }

// AcquireBudget attempts to spend n units of budget, returning false
// without mutating state if insufficient remains. Budget is a hint
// consulted at well-known points (the top of a blocking primitive's
// retry loop) rather than an enforced limit — callers are free to
// ignore a false result.
func (c *Context) AcquireBudget(n uint16) bool {
	if c.budget < n {
		return false
	}
	c.budget -= n
	return true
}
