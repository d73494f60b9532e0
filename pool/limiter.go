package pool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many callers may hold a slot concurrently, backed by
// a weighted semaphore rather than a bare buffered-channel counter.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a Limiter allowing at most n concurrent holders.
func NewLimiter(n int64) *Limiter {
	return &Limiter{sem: semaphore.NewWeighted(n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking, reporting whether one was free.
func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release frees a slot previously acquired.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
