package wait

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/future"
)

func TestAtomicWaiterWakeDelivers(t *testing.T) {
	w := NewAtomicWaiter[int]()
	var got Result[int]
	req := future.NewRequest[Result[int]](func(r Result[int]) { got = r })

	progress := w.Wait(req)
	_, ready := progress.IsReady()
	require.False(t, ready)

	w.Wake(42)
	require.NoError(t, got.Err)
	require.Equal(t, 42, got.Value)
}

func TestAtomicWaiterSecondWaiterSupersedesFirst(t *testing.T) {
	w := NewAtomicWaiter[int]()
	var first, second Result[int]
	req1 := future.NewRequest[Result[int]](func(r Result[int]) { first = r })
	req2 := future.NewRequest[Result[int]](func(r Result[int]) { second = r })

	w.Wait(req1)
	w.Wait(req2)

	require.ErrorIs(t, first.Err, ferr.ErrCancelled)

	w.Wake(1)
	require.NoError(t, second.Err)
	require.Equal(t, 1, second.Value)
}

func TestAtomicWaiterCloseWakesAndLatches(t *testing.T) {
	w := NewAtomicWaiter[int]()
	var got Result[int]
	req := future.NewRequest[Result[int]](func(r Result[int]) { got = r })
	w.Wait(req)

	w.Close(5)
	require.NoError(t, got.Err)
	require.Equal(t, 5, got.Value)

	req2 := future.NewRequest[Result[int]](func(Result[int]) {})
	progress := w.Wait(req2)
	v, ready := progress.IsReady()
	require.True(t, ready)
	require.ErrorIs(t, v.Err, ferr.ErrClosed)
}

func TestAtomicWaiterCancel(t *testing.T) {
	w := NewAtomicWaiter[int]()
	var got Result[int]
	req := future.NewRequest[Result[int]](func(r Result[int]) { got = r })
	progress := w.Wait(req)

	cancel := progress.Cancel()
	require.NoError(t, cancel())
	require.ErrorIs(t, got.Err, ferr.ErrInterrupted)
}

func TestAtomicWaiterCloseErr(t *testing.T) {
	w := NewAtomicWaiter[int]()
	var got Result[int]
	req := future.NewRequest[Result[int]](func(r Result[int]) { got = r })
	w.Wait(req)

	w.CloseErr(ferr.ErrClosed)
	require.ErrorIs(t, got.Err, ferr.ErrClosed)
}
