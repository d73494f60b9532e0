// Package pool adapts a handful of general-purpose goroutine pools into a
// single dispatch interface, for running blocking work that eventually
// drives a cross-thread Future completion (task.BlockOnCrossThread's
// other half: something has to actually execute the blocking call and
// invoke the request's callback when it's done).
package pool

import (
	"fmt"

	"github.com/Jeffail/tunny"
	"github.com/gammazero/workerpool"
	"github.com/panjf2000/ants/v2"
	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coropath/fibra/internal/safe"
)

// Pool dispatches fire-and-forget work, recovering any panic instead of
// crashing the worker goroutine.
type Pool interface {
	Submit(f func()) error
	Close()
}

// goroutinePool is the simplest backend: one goroutine per submission,
// unbounded, panic-safe via internal/safe.Go.
type goroutinePool struct{}

// NewGoroutines returns a Pool with no concurrency limit.
func NewGoroutines() Pool { return goroutinePool{} }

func (goroutinePool) Submit(f func()) error {
	safe.Go(f)
	return nil
}

func (goroutinePool) Close() {}

// antsPool bounds concurrency with panjf2000/ants.
type antsPool struct{ p *ants.Pool }

// NewAnts returns a Pool backed by a fixed-size ants worker pool.
func NewAnts(size int) (Pool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("pool: new ants pool: %w", err)
	}
	return &antsPool{p: p}, nil
}

func (a *antsPool) Submit(f func()) error {
	return a.p.Submit(safe.WithRecover(f))
}

func (a *antsPool) Close() { a.p.Release() }

// workerPool bounds concurrency with gammazero/workerpool.
type workerPool struct{ p *workerpool.WorkerPool }

// NewWorkerpool returns a Pool backed by a fixed-size gammazero worker pool.
func NewWorkerpool(size int) Pool {
	return &workerPool{p: workerpool.New(size)}
}

func (w *workerPool) Submit(f func()) error {
	w.p.Submit(safe.WithRecover(f))
	return nil
}

func (w *workerPool) Close() { w.p.StopWait() }

// concPool bounds concurrency with sourcegraph/conc's structured pool.
type concPool struct{ p *concpool.Pool }

// NewConc returns a Pool backed by a conc pool capped at maxGoroutines.
func NewConc(maxGoroutines int) Pool {
	return &concPool{p: concpool.New().WithMaxGoroutines(maxGoroutines)}
}

func (c *concPool) Submit(f func()) error {
	c.p.Go(safe.WithRecover(f))
	return nil
}

func (c *concPool) Close() { c.p.Wait() }

// tunnyPool bounds concurrency with Jeffail/tunny, processing each
// submission as a payload through a fixed worker set.
type tunnyPool struct{ p *tunny.Pool }

// NewTunny returns a Pool backed by a fixed-size tunny worker pool.
func NewTunny(size int) Pool {
	p := tunny.NewFunc(size, func(payload interface{}) interface{} {
		if fn, ok := payload.(func()); ok {
			safe.WithRecover(fn)()
		}
		return nil
	})
	return &tunnyPool{p: p}
}

func (t *tunnyPool) Submit(f func()) error {
	t.p.Process(f)
	return nil
}

func (t *tunnyPool) Close() { t.p.Close() }
