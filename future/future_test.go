package future

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/internal/safe"
)

func TestDoneNeverInvokesCallback(t *testing.T) {
	called := false
	req := NewRequest[int](func(int) { called = true })

	f := Func[int](func(*Request[int]) Progress[int] { return Done(7) })
	progress := f.Run(req)

	v, ok := progress.IsReady()
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.False(t, called)
}

func TestPendingCompletesOnce(t *testing.T) {
	var got int
	calls := 0
	req := NewRequest[int](func(v int) {
		got = v
		calls++
	})

	f := Func[int](func(r *Request[int]) Progress[int] {
		return Pending[int](func() error { return nil })
	})
	progress := f.Run(req)

	_, ok := progress.IsReady()
	require.False(t, ok)
	require.NotNil(t, progress.Cancel())

	req.Complete(9)
	require.Equal(t, 9, got)
	require.Equal(t, 1, calls)
}

func TestReadyFuture(t *testing.T) {
	f := Ready("hello")
	req := NewRequest[string](func(string) { t.Fatal("callback must not fire for Done") })
	progress := f.Run(req)
	v, ok := progress.IsReady()
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestDoubleCompletePanicsInDebugOnly(t *testing.T) {
	req := NewRequest[int](func(int) {})
	req.Complete(1)
	if safe.Debug {
		require.Panics(t, func() { req.Complete(2) })
	} else {
		require.NotPanics(t, func() { req.Complete(2) })
	}
}
