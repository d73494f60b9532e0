package fiber

import (
	"sync"

	"github.com/gammazero/deque"
)

// Pool is a thread-safe pool of idle fibers keyed by "active count": it
// keeps at most ceil(active*0.20)+16 idle stacks around for reuse, unmapping
// the rest. Backed by gammazero/deque (a teacher
// dependency via future/go.mod, never wired by the teacher itself) as the
// idle LIFO, the same way this module's pool package adapts other
// unwired teacher pool backends for blocking dispatch.
type Pool struct {
	mu     sync.Mutex
	idle   deque.Deque[*Fiber]
	active int

	stackSize int
}

// NewPool creates an empty fiber pool. stackSize is the size passed to New
// when the pool has no idle fiber to reuse; 0 uses the platform default.
func NewPool(stackSize int) *Pool {
	return &Pool{stackSize: stackSize}
}

// capacity is the number of idle fibers this pool is willing to retain given
// its current active count: ceil(active*0.20)+16.
func (p *Pool) capacity() int {
	return (p.active*20+99)/100 + 16
}

// Get returns an idle fiber if one is available, otherwise allocates a new
// one. Marks the fiber as active for pool-capacity accounting.
func (p *Pool) Get() (*Fiber, error) {
	p.mu.Lock()
	if p.idle.Len() > 0 {
		f := p.idle.PopBack()
		p.active++
		p.mu.Unlock()
		return f, nil
	}
	p.active++
	p.mu.Unlock()

	f, err := New(p.stackSize)
	if err != nil {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		return nil, err
	}
	return f, nil
}

// put is the shared decision point for a fiber that just exited: reuse it if
// the pool has room, otherwise release its stack. Always called with the
// fiber no longer running (it has already been switched away from — see
// Exit and Switch in switch.go).
func (p *Pool) put(f *Fiber) {
	p.mu.Lock()
	p.active--
	if p.idle.Len() < p.capacity() {
		if err := f.adviseFree(); err == nil {
			f.state = StateIdle
			p.idle.PushBack(f)
			p.mu.Unlock()
			Logger.Debug("fiber pooled", "idle", p.idle.Len(), "active", p.active)
			return
		}
	}
	p.mu.Unlock()
	if err := f.Release(); err != nil {
		Logger.Warn("fiber stack unmap failed", "error", err)
	}
}

// ExitToPool switches away from f to to, then either returns f's stack to
// the pool or unmaps it, matching "exit_to_pool" in spec.md §4.1. f must
// never be entered again.
func (p *Pool) ExitToPool(f, to *Fiber) {
	Exit(f, to, func() { p.put(f) })
}

// Counts returns (active, idle) for tests and diagnostics.
func (p *Pool) Counts() (active, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, p.idle.Len()
}
