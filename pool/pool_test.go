package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBackend(t *testing.T, p Pool, n int) {
	t.Helper()
	var wg sync.WaitGroup
	var count atomic.Int64
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.Submit(func() {
			count.Add(1)
			wg.Done()
		}))
	}
	wg.Wait()
	require.EqualValues(t, n, count.Load())
	p.Close()
}

func TestGoroutinesPoolRunsAllWork(t *testing.T) {
	testBackend(t, NewGoroutines(), 32)
}

func TestAntsPoolRunsAllWork(t *testing.T) {
	p, err := NewAnts(4)
	require.NoError(t, err)
	testBackend(t, p, 32)
}

func TestWorkerpoolRunsAllWork(t *testing.T) {
	testBackend(t, NewWorkerpool(4), 32)
}

func TestConcPoolRunsAllWork(t *testing.T) {
	testBackend(t, NewConc(4), 32)
}

func TestTunnyPoolRunsAllWork(t *testing.T) {
	testBackend(t, NewTunny(4), 32)
}

func TestGoroutinesPoolRecoversPanic(t *testing.T) {
	p := NewGoroutines()
	done := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		defer close(done)
		panic("boom")
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking submission never completed")
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(2)
	require.True(t, l.TryAcquire())
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire(), "third acquire must fail while two slots are held")
	l.Release()
	require.True(t, l.TryAcquire())
}

func TestJoinAllReturnsFirstError(t *testing.T) {
	sentinel := errSentinel{}
	err := JoinAll(
		func() error { return nil },
		func() error { return sentinel },
		func() error { return nil },
	)
	require.ErrorIs(t, err, sentinel)
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }
