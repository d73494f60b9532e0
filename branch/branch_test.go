package branch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/future"
)

// manualFuture is a hand-driven future.Future for exercising Branch without
// a real fiber runtime: Run always returns Pending, complete delivers a
// value directly, and cancel (once invoked) completes the request with
// cancelValue and records that it ran.
type manualFuture[T any] struct {
	req         *future.Request[T]
	cancelled   bool
	cancelValue T
	cancelErr   error
}

func (m *manualFuture[T]) Run(req *future.Request[T]) future.Progress[T] {
	m.req = req
	return future.Pending[T](func() error {
		m.cancelled = true
		req.Complete(m.cancelValue)
		return m.cancelErr
	})
}

func (m *manualFuture[T]) complete(v T) {
	m.req.Complete(v)
}

func TestSelectCancelsLoserOnFirstCompletion(t *testing.T) {
	f1 := &manualFuture[int]{cancelValue: -1}
	f2 := &manualFuture[string]{cancelValue: "cancelled"}
	b := Select[int, string](f1, f2)

	var result Output[int, string]
	req := future.NewRequest[Output[int, string]](func(out Output[int, string]) {
		result = out
	})
	progress := b.Run(req)
	_, ready := progress.IsReady()
	require.False(t, ready)

	f1.complete(7)

	require.True(t, f2.cancelled)
	require.NotNil(t, result.First)
	require.Equal(t, 7, *result.First)
	require.NotNil(t, result.Second)
	require.Equal(t, "cancelled", *result.Second)
}

func TestJoinNeverCancelsEitherSide(t *testing.T) {
	f1 := &manualFuture[int]{cancelValue: -1}
	f2 := &manualFuture[string]{cancelValue: "cancelled"}
	b := Join[int, string](f1, f2)

	var result Output[int, string]
	req := future.NewRequest[Output[int, string]](func(out Output[int, string]) {
		result = out
	})
	progress := b.Run(req)
	_, ready := progress.IsReady()
	require.False(t, ready)

	f1.complete(1)
	require.False(t, f2.cancelled, "Join must not cancel the sibling when one side finishes")
	require.Nil(t, result.Second)

	f2.complete("done")
	require.False(t, f1.cancelled)
	require.NotNil(t, result.First)
	require.Equal(t, 1, *result.First)
	require.NotNil(t, result.Second)
	require.Equal(t, "done", *result.Second)
}

func TestParentCancelStopsBothChildrenWithoutReentrantSiblingCancel(t *testing.T) {
	errA := errors.New("cancel a failed")
	errB := errors.New("cancel b failed")
	f1 := &manualFuture[int]{cancelValue: -1, cancelErr: errA}
	f2 := &manualFuture[string]{cancelValue: "cancelled", cancelErr: errB}
	b := Select[int, string](f1, f2)

	var result Output[int, string]
	req := future.NewRequest[Output[int, string]](func(out Output[int, string]) {
		result = out
	})
	progress := b.Run(req)
	cancel := progress.Cancel()
	require.NotNil(t, cancel)

	err := cancel()
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)

	require.True(t, f1.cancelled)
	require.True(t, f2.cancelled)
	require.NotNil(t, result.First)
	require.Equal(t, -1, *result.First)
	require.NotNil(t, result.Second)
	require.Equal(t, "cancelled", *result.Second)
}

func TestBranchCompletesSynchronouslyWhenBothChildrenAreReady(t *testing.T) {
	f1 := future.Ready(3)
	f2 := future.Ready("x")
	b := Join[int, string](f1, f2)

	req := future.NewRequest[Output[int, string]](func(Output[int, string]) {
		t.Fatal("callback must not fire for a synchronously-ready Branch")
	})
	progress := b.Run(req)
	out, ready := progress.IsReady()
	require.True(t, ready)
	require.Equal(t, 3, *out.First)
	require.Equal(t, "x", *out.Second)
}
