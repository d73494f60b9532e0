package achan

import (
	"fmt"
	"sync"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/task"
	"github.com/coropath/fibra/wait"
)

// broadcastSlot is one ring cell of a Broadcast channel, stamped with the
// subscriber count present at publish time.
type broadcastSlot[T any] struct {
	gen       uint64
	data      T
	remaining int64
	valid     bool
}

// Broadcast is a ring-buffered publish/subscribe channel: every
// non-lagging subscriber observes every published value in order, and a
// subscriber that falls more than capacity messages behind is reported
// Lagged and fast-forwarded.
//
// Unlike the lock-free Vyukov ring Bounded uses, Broadcast guards its ring
// and per-slot remaining counters with a single mutex: a subscriber's read
// cursor, the publish tail, and each slot's remaining count all need to be
// observed together, and getting that right lock-free without being able
// to run the result under the race detector is not a trade worth making
// here — see DESIGN.md.
type Broadcast[T any] struct {
	mu   sync.Mutex
	buf  []broadcastSlot[T]
	mask uint64

	tail        uint64
	subscribers int64
	closed      bool

	waitList *wait.WaitList[struct{}]
}

// NewBroadcast creates a broadcast channel with capacity rounded up to the
// next power of two.
func NewBroadcast[T any](capacity int) (*Broadcast[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("achan: capacity must be positive, got %d", capacity)
	}
	n := nextPowerOfTwo(capacity)
	return &Broadcast[T]{
		buf:      make([]broadcastSlot[T], n),
		mask:     uint64(n - 1),
		waitList: wait.NewThreadSafe[struct{}](),
	}, nil
}

// Subscribe registers a new subscriber whose cursor starts at the current
// tail — it only observes values published from this point on.
func (b *Broadcast[T]) Subscribe() *Subscriber[T] {
	b.mu.Lock()
	b.subscribers++
	cursor := b.tail
	b.mu.Unlock()
	return &Subscriber[T]{b: b, cursor: cursor}
}

// Send publishes v to every current subscriber.
func (b *Broadcast[T]) Send(v T) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ferr.ErrClosed
	}
	idx := b.tail & b.mask
	b.buf[idx] = broadcastSlot[T]{gen: b.tail, data: v, remaining: b.subscribers, valid: true}
	b.tail++
	b.mu.Unlock()
	b.waitList.WakeAll(struct{}{})
	return nil
}

// Close marks the channel closed; every parked subscriber observes
// ErrClosed once the backlog (if any) is drained.
func (b *Broadcast[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.waitList.Close(struct{}{})
}

// Subscriber is an independent reader cursor over a Broadcast channel.
type Subscriber[T any] struct {
	b      *Broadcast[T]
	cursor uint64
}

// TryRecv returns the next value for this subscriber without blocking. A
// subscriber more than capacity messages behind the tail is reported
// Lagged(n) and fast-forwarded to tail-capacity.
func (s *Subscriber[T]) TryRecv() (T, error) {
	var zero T
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()

	n := uint64(len(b.buf))
	if b.tail-s.cursor > n {
		lagged := (b.tail - n) - s.cursor
		s.cursor = b.tail - n
		return zero, ferr.ErrLagged(lagged)
	}
	if s.cursor == b.tail {
		if b.closed {
			return zero, ferr.ErrClosed
		}
		return zero, ferr.ErrEmpty
	}

	idx := s.cursor & b.mask
	slot := &b.buf[idx]
	if !slot.valid || slot.gen != s.cursor {
		return zero, ferr.ErrLagged(0)
	}
	v := slot.data
	slot.remaining--
	if slot.remaining <= 0 {
		// last reader: consume (move out) rather than leave a clone lying
		// around for nobody to read.
		var z T
		slot.data = z
		slot.valid = false
	}
	s.cursor++
	return v, nil
}

// pending reports, without consuming anything, whether TryRecv would
// currently return something other than ErrEmpty — a value, a lag report,
// or ErrClosed. Used as Notified's should-block check so a publish or
// close landing between a failed TryRecv and this subscriber registering
// on the wait-list is never missed.
func (s *Subscriber[T]) pending() bool {
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tail-s.cursor > uint64(len(b.buf)) {
		return true
	}
	if s.cursor == b.tail {
		return b.closed
	}
	return true
}

// Recv blocks ctx's fiber until a value, lag report, or close is observed.
func (s *Subscriber[T]) Recv(ctx *task.Context) (T, error) {
	for {
		v, err := s.TryRecv()
		if err != ferr.ErrEmpty {
			return v, err
		}
		res := s.b.waitList.Notified(ctx, func() bool { return !s.pending() })
		if res.Err != nil && res.Err != ferr.ErrCancelled && res.Err != ferr.ErrClosed {
			var zero T
			return zero, res.Err
		}
	}
}

// Close drops this subscriber. Slots it has not yet read remain addressed
// by its stamped remaining count until another reader (or this bookkeeping
// accounting for that reader's departure) consumes them; a full accurate
// accounting on drop is intentionally not attempted.
func (s *Subscriber[T]) Close() {
	s.b.mu.Lock()
	s.b.subscribers--
	s.b.mu.Unlock()
}
