package achan

import (
	"fmt"
	"sync"

	uatomic "go.uber.org/atomic"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/task"
	"github.com/coropath/fibra/wait"
)

// slot is one ring cell of a Bounded channel.
// sequence encodes both readiness and generation per the Vyukov protocol.
type slot[T any] struct {
	sequence uatomic.Uint64
	data     T
}

// Bounded is a Vyukov-style bounded MPMC/MPSC ring buffer.
// Capacity is rounded up to the next power of two; try_send/try_recv are
// lock-free, blocking Send/Recv park on a wait-list keyed to the channel.
type Bounded[T any] struct {
	buf  []slot[T]
	mask uint64

	head uatomic.Uint64
	tail uatomic.Uint64

	senders   uatomic.Int64
	receivers uatomic.Int64
	closed    uatomic.Bool

	sendWait *wait.WaitList[struct{}]
	recvWait *wait.WaitList[struct{}]

	mpsc           bool
	receiverMu     sync.Mutex
	receiverIssued bool
}

// nextPowerOfTwo rounds n up to the next power of two, with a floor of 2:
// the Vyukov sequence scheme needs at least two physical slots to tell
// "just produced, not yet consumed" apart from "the ring has wrapped and
// this slot is free again" — a single-slot ring reuses the same sequence
// value for both.
func nextPowerOfTwo(n int) int {
	if n <= 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NewMPMC creates a multi-producer multi-consumer bounded channel.
// Capacity 0 is rejected; any positive capacity is rounded up to the next
// power of two.
func NewMPMC[T any](capacity int) (*Bounded[T], error) {
	return newBounded[T](capacity, false)
}

// NewMPSC creates a single-consumer bounded channel: NewReceiver may be
// called at most once.
func NewMPSC[T any](capacity int) (*Bounded[T], error) {
	return newBounded[T](capacity, true)
}

func newBounded[T any](capacity int, mpsc bool) (*Bounded[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("achan: capacity must be positive, got %d", capacity)
	}
	n := nextPowerOfTwo(capacity)
	c := &Bounded[T]{
		buf:      make([]slot[T], n),
		mask:     uint64(n - 1),
		sendWait: wait.NewThreadSafe[struct{}](),
		recvWait: wait.NewThreadSafe[struct{}](),
		mpsc:     mpsc,
	}
	for i := range c.buf {
		c.buf[i].sequence.Store(uint64(i))
	}
	return c, nil
}

// TrySend attempts a non-blocking send, returning ErrFull if the ring has
// no free slot.
func (c *Bounded[T]) TrySend(v T) error {
	for {
		pos := c.tail.Load()
		s := &c.buf[pos&c.mask]
		seq := s.sequence.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if c.tail.CompareAndSwap(pos, pos+1) {
				s.data = v
				s.sequence.Store(pos + 1)
				c.recvWait.WakeOne(struct{}{})
				return nil
			}
		case diff < 0:
			return ferr.ErrFull
		default:
			// another producer already advanced tail; reload and retry
		}
	}
}

// canSend reports, without claiming a slot, whether TrySend would currently
// have something other than ErrFull to report. Used as Notified's
// should-block check so a receive freeing a slot between a failed TrySend
// and registering on the wait-list is never missed.
func (c *Bounded[T]) canSend() bool {
	if c.closed.Load() {
		return true
	}
	pos := c.tail.Load()
	s := &c.buf[pos&c.mask]
	seq := s.sequence.Load()
	return int64(seq)-int64(pos) >= 0
}

// canRecv is canSend's receive-side counterpart.
func (c *Bounded[T]) canRecv() bool {
	if c.closed.Load() {
		return true
	}
	pos := c.head.Load()
	s := &c.buf[pos&c.mask]
	seq := s.sequence.Load()
	return int64(seq)-int64(pos+1) >= 0
}

// TryRecv attempts a non-blocking receive, returning ErrEmpty if the ring
// has nothing ready.
func (c *Bounded[T]) TryRecv() (T, error) {
	var zero T
	for {
		pos := c.head.Load()
		s := &c.buf[pos&c.mask]
		seq := s.sequence.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if c.head.CompareAndSwap(pos, pos+1) {
				v := s.data
				s.data = zero
				s.sequence.Store(pos + uint64(len(c.buf)))
				c.sendWait.WakeOne(struct{}{})
				return v, nil
			}
		case diff < 0:
			return zero, ferr.ErrEmpty
		default:
		}
	}
}

// Send blocks ctx's fiber until v is accepted or the channel is closed
// (every receiver dropped).
func (c *Bounded[T]) Send(ctx *task.Context, v T) error {
	for {
		if err := c.TrySend(v); err != ferr.ErrFull {
			return err
		}
		if c.closed.Load() {
			return ferr.ErrClosed
		}
		res := c.sendWait.Notified(ctx, func() bool { return !c.canSend() })
		if res.Err != nil && res.Err != ferr.ErrCancelled && res.Err != ferr.ErrClosed {
			return res.Err
		}
	}
}

// Recv blocks ctx's fiber until a value is available. After close, still
// buffered values continue to be drained before ErrClosed is returned.
func (c *Bounded[T]) Recv(ctx *task.Context) (T, error) {
	for {
		v, err := c.TryRecv()
		if err != ferr.ErrEmpty {
			return v, err
		}
		if c.closed.Load() {
			if v, err := c.TryRecv(); err != ferr.ErrEmpty {
				return v, err
			}
			var zero T
			return zero, ferr.ErrClosed
		}
		res := c.recvWait.Notified(ctx, func() bool { return !c.canRecv() })
		if res.Err != nil && res.Err != ferr.ErrCancelled && res.Err != ferr.ErrClosed {
			var zero T
			return zero, res.Err
		}
	}
}

// NewSender returns a ref-counted sender handle; Close on the last sender
// wakes all receivers so blocked Recv calls observe ErrClosed once the
// buffer drains.
func (c *Bounded[T]) NewSender() *Sender[T] {
	c.senders.Inc()
	return &Sender[T]{ch: c}
}

// NewReceiver returns a ref-counted receiver handle. For an MPSC channel
// this may only be called once; subsequent calls return an error.
func (c *Bounded[T]) NewReceiver() (*Receiver[T], error) {
	if c.mpsc {
		c.receiverMu.Lock()
		already := c.receiverIssued
		c.receiverIssued = true
		c.receiverMu.Unlock()
		if already {
			return nil, fmt.Errorf("achan: NewReceiver called more than once on an MPSC channel")
		}
	}
	c.receivers.Inc()
	return &Receiver[T]{ch: c}, nil
}

// Sender is a ref-counted send handle onto a Bounded channel.
type Sender[T any] struct{ ch *Bounded[T] }

// TrySend delegates to the channel.
func (s *Sender[T]) TrySend(v T) error { return s.ch.TrySend(v) }

// Send delegates to the channel.
func (s *Sender[T]) Send(ctx *task.Context, v T) error { return s.ch.Send(ctx, v) }

// Close drops this sender handle; the last sender's Close closes the
// channel for receivers.
func (s *Sender[T]) Close() {
	if s.ch.senders.Dec() == 0 {
		s.ch.closed.Store(true)
		s.ch.recvWait.WakeAll(struct{}{})
	}
}

// Receiver is a ref-counted receive handle onto a Bounded channel.
type Receiver[T any] struct{ ch *Bounded[T] }

// TryRecv delegates to the channel.
func (r *Receiver[T]) TryRecv() (T, error) { return r.ch.TryRecv() }

// Recv delegates to the channel.
func (r *Receiver[T]) Recv(ctx *task.Context) (T, error) { return r.ch.Recv(ctx) }

// Close drops this receiver handle; the last receiver's Close closes the
// channel for senders.
func (r *Receiver[T]) Close() {
	if r.ch.receivers.Dec() == 0 {
		r.ch.closed.Store(true)
		r.ch.sendWait.WakeAll(struct{}{})
	}
}
