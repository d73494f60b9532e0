package task

import (
	"fmt"
	"sync"

	"github.com/coropath/fibra/executor"
	"github.com/coropath/fibra/fiber"
	"github.com/coropath/fibra/future"
	"github.com/coropath/fibra/internal/safe"
)

// Task is the async body a Spawn runs: the proc-macro front end that
// rewrites "async fn" into this shape is out of scope here — callers construct a Task directly, typically via Func.
type Task[R any] interface {
	Run(ctx *Context) R
}

// Func adapts a plain function to Task.
type Func[R any] func(ctx *Context) R

// Run implements Task.
func (f Func[R]) Run(ctx *Context) R { return f(ctx) }

// JoinHandle is the Future returned by Spawn: Done once the spawned task's
// body has returned (just before its fiber exits), its value wrapped in a MaybePanic so a panic inside
// the task surfaces to whoever joins rather than crashing the executor
// thread.
type JoinHandle[R any] struct {
	mu     sync.Mutex
	done   bool
	result safe.MaybePanic[R]
	waiter *future.Request[safe.MaybePanic[R]]
}

// Run implements future.Future[safe.MaybePanic[R]].
func (h *JoinHandle[R]) Run(req *future.Request[safe.MaybePanic[R]]) future.Progress[safe.MaybePanic[R]] {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return future.Done(h.result)
	}
	h.waiter = req
	return future.Pending[safe.MaybePanic[R]](func() error {
		h.mu.Lock()
		w := h.waiter
		h.waiter = nil
		h.mu.Unlock()
		if w != nil {
			// The spawned task keeps running to completion regardless;
			// cancelling a join only stops this particular waiter. A
			// zero-valued, non-panicked result is delivered immediately
			// so the Future contract's "callback still fires after
			// Pending" rule holds even though nothing real completed.
			w.Complete(safe.MaybePanic[R]{})
		}
		return nil
	})
}

// tryResult reports whether the spawned task has finished, and its result
// if so, without registering a waiter — the non-blocking peek RunBlocking's
// drive loop needs since its caller has no fiber of its own to suspend.
func (h *JoinHandle[R]) tryResult() (safe.MaybePanic[R], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.done
}

func (h *JoinHandle[R]) complete(result safe.MaybePanic[R]) {
	h.mu.Lock()
	h.done = true
	h.result = result
	w := h.waiter
	h.waiter = nil
	h.mu.Unlock()
	if w != nil {
		w.Complete(result)
	}
}

// Spawn obtains a fiber from pool, gives it a fresh Context, and starts it
// running t; the spawner gets back a JoinHandle signalled when t finishes
//. parent supplies the executor the new worker is
// scheduled on.
func Spawn[R any](parent *Context, pool *fiber.Pool, t Task[R]) (*JoinHandle[R], error) {
	handle := &JoinHandle[R]{}
	ex := parent.Worker().Executor

	f, err := pool.Get()
	if err != nil {
		return nil, fmt.Errorf("task: spawn: %w", err)
	}
	w := &executor.Worker{Executor: ex, Fiber: f}
	f.SetStart(func(any) {
		childCtx := New(w)
		result := safe.Run(func() R { return t.Run(childCtx) })
		handle.complete(result)
		ex.Exit(w, pool)
	}, nil)
	ex.Start(w)
	return handle, nil
}

// Join awaits handle on ctx's fiber, re-raising any panic captured inside
// the spawned task on this, the joining, side.
//
// Joining uses BlockOnCrossThread rather than BlockOn even though the
// common case resolves on the same OS thread: if ctx is already parked
// here when the spawned task finishes, completion happens from inside
// that task's own fiber, in the middle of unwinding back through
// Executor.Exit. A direct Resume from there would hijack control away
// before Exit finishes returning the fiber to its pool; enqueueing
// instead lets Exit complete normally and leaves the actual resume to
// the executor's drive loop.
func Join[R any](ctx *Context, handle *JoinHandle[R]) R {
	mp := BlockOnCrossThread[safe.MaybePanic[R]](ctx, handle)
	mp.Recover()
	return mp.Value
}

// RunBlocking is the root entry point that bridges a plain goroutine into
// the fiber runtime: it builds a fresh Executor and fiber Pool, spawns t as
// the root task, and blocks the calling goroutine until it finishes.
//
// The calling goroutine itself is never suspended via BlockOn — it
// has no ResumeTo to suspend back to, since nothing ever resumed it the
// way Spawn's child workers are resumed by their parent. Instead, once the
// root task either finishes synchronously or suspends back to the calling
// goroutine on its own (a same-thread wake resolves it without any help
// here), this drives the executor's cross-thread resume queue — the
// mechanism spec.md §5 describes for completions that fire on a different
// goroutine (timers, thread-pool dispatch via the pool package) — until
// the root task's JoinHandle reports done.
func RunBlocking[R any](t Task[R]) R {
	mainFiber, err := fiber.New(0)
	if err != nil {
		panic(fmt.Errorf("task: RunBlocking: allocate main fiber: %w", err))
	}
	ex := executor.New(mainFiber)
	pool := fiber.NewPool(0)
	root := New(ex.Main())

	handle, err := Spawn(root, pool, t)
	if err != nil {
		panic(fmt.Errorf("task: RunBlocking: spawn root task: %w", err))
	}

	for {
		if mp, done := handle.tryResult(); done {
			mp.Recover()
			return mp.Value
		}
		ex.DriveOnce()
	}
}
