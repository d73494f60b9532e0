// Package executor implements the per-thread scheduling of fibers
//. An Executor owns the thread's main fiber and tracks
// whichever Worker is currently running; a Worker pairs a fiber with a
// back-link to whoever most recently resumed it, so suspending always goes
// back the way it came — a strict LIFO resume chain, never fair, never
// preemptive.
//
// No teacher package models this — Tangerg/lynx never runs its own
// scheduler loop, it rides goroutines — so this is grounded directly on
// spec.md §3/§4.2, built on top of this module's own fiber package.
package executor

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/coropath/fibra/fiber"
)

// Logger is the package-level logger for resume/suspend edges.
var Logger = slog.Default()

// SetLogger overrides the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// Worker pairs a fiber with the worker that most recently resumed it. The
// back-link (ResumeTo) is what a suspend follows; it is set fresh on every
// resume, so a fiber resumed from two different places at different times
// always suspends back to whichever one actually resumed it last.
type Worker struct {
	Executor *Executor
	ResumeTo *Worker
	Fiber    *fiber.Fiber

	// pinned records whether workerPinned has fired for this worker: once a
	// Worker is referenced from Executor.current its address must not move,
	// so callers box/pin it before Start.
	pinned bool
}

// Executor is the per-thread switch controller. Created before any worker
// runs; Current always names the worker whose fiber is executing.
//
// resumeQueue is this module's stand-in for spec.md §5's "thread parking
// primitive (futex-based notify)": a Future completing on a foreign
// goroutine cannot call Resume directly (fiber.Switch only makes sense on
// the OS thread that owns the stacks), so it enqueues the worker to wake
// and the owning thread's Drive loop dequeues and resumes it in place.
type Executor struct {
	main    *Worker
	current *Worker

	resumeQueue chan *Worker
}

// New creates an Executor bound to the calling goroutine's OS thread,
// locking it for the Executor's lifetime the way a single-threaded
// cooperative scheduler must.
// mainFiber represents the thread's original stack (the one New is called
// from) and is never itself switched away from except by resuming into
// other workers.
func New(mainFiber *fiber.Fiber) *Executor {
	runtime.LockOSThread()
	e := &Executor{resumeQueue: make(chan *Worker, 256)}
	e.main = &Worker{Executor: e, Fiber: mainFiber}
	e.current = e.main
	e.workerPinned(e.main)
	return e
}

// EnqueueResume hands target off to this executor's owning thread for a
// cross-thread wake, safe to call from any goroutine. The owning thread must be running
// Drive or DriveOnce to observe it.
func (e *Executor) EnqueueResume(target *Worker) {
	e.resumeQueue <- target
}

// DriveOnce blocks until one cross-thread resume request arrives and
// resumes it, returning the worker that was resumed. Intended to be called
// from the executor's main fiber whenever it has no local work left —
// the idle-loop equivalent of parking on a futex.
func (e *Executor) DriveOnce() *Worker {
	w := <-e.resumeQueue
	e.Resume(w)
	return w
}

// Drive runs DriveOnce in a loop until stop is closed.
func (e *Executor) Drive(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case w := <-e.resumeQueue:
			e.Resume(w)
		}
	}
}

// Current returns the worker whose fiber is executing on this thread.
func (e *Executor) Current() *Worker {
	return e.current
}

// Main returns the executor's main worker.
func (e *Executor) Main() *Worker {
	return e.main
}

// workerPinned is the bookkeeping hook spec.md §4.2 calls out, invoked once
// a worker's address has stabilized (after it is boxed/stack-pinned).
func (e *Executor) workerPinned(w *Worker) {
	w.pinned = true
	Logger.Debug("worker pinned", "worker", fmt.Sprintf("%p", w))
}

// Resume switches from the current worker to target: target.ResumeTo is set
// to the current worker, target becomes current, and control transfers via
// fiber.Switch. Precondition: target must not already be in the resume
// chain — resuming an ancestor would be a cycle.
func (e *Executor) Resume(target *Worker) {
	if !target.pinned {
		e.workerPinned(target)
	}
	prev := e.current
	target.ResumeTo = prev
	e.current = target
	Logger.Debug("resume", "from", fmt.Sprintf("%p", prev), "to", fmt.Sprintf("%p", target))
	fiber.Switch(prev.Fiber, target.Fiber)
}

// Start is identical to Resume for a worker whose fiber has not yet been
// entered; the platform trampoline installed by fiber.SetStart takes it
// from there.
func (e *Executor) Start(target *Worker) {
	e.Resume(target)
}

// Suspend switches away from self back along its ResumeTo link — the
// symmetric counterpart to Resume.
func (e *Executor) Suspend(self *Worker) {
	target := self.ResumeTo
	if target == nil {
		panic("executor: suspend called with no resume_to")
	}
	e.current = target
	Logger.Debug("suspend", "from", fmt.Sprintf("%p", self), "to", fmt.Sprintf("%p", target))
	fiber.Switch(self.Fiber, target.Fiber)
}

// Exit switches away from self for the last time, releasing or pooling its
// stack once control has transferred. self must never be
// resumed again.
func (e *Executor) Exit(self *Worker, pool *fiber.Pool) {
	target := self.ResumeTo
	if target == nil {
		panic("executor: exit called with no resume_to")
	}
	e.current = target
	Logger.Debug("exit", "from", fmt.Sprintf("%p", self), "to", fmt.Sprintf("%p", target))
	pool.ExitToPool(self.Fiber, target.Fiber)
}
