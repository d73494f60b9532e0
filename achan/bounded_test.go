package achan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/fiber"
	"github.com/coropath/fibra/task"
)

func TestBoundedCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	ch, err := NewMPMC[int](5)
	require.NoError(t, err)
	require.Equal(t, uint64(7), ch.mask) // capacity 8, mask = 7

	_, err = NewMPMC[int](0)
	require.Error(t, err)
}

func TestBoundedFillThenDrain(t *testing.T) {
	ch, err := NewMPMC[int](4)
	require.NoError(t, err)

	for _, v := range []int{1, 2, 3, 4} {
		require.NoError(t, ch.TrySend(v))
	}
	require.ErrorIs(t, ch.TrySend(5), ferr.ErrFull)

	for _, want := range []int{1, 2, 3, 4} {
		v, err := ch.TryRecv()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
	_, err = ch.TryRecv()
	require.ErrorIs(t, err, ferr.ErrEmpty)
}

func TestBoundedBlockingSendRecvAcrossFibers(t *testing.T) {
	result := task.RunBlocking[[]int](task.Func[[]int](func(ctx *task.Context) []int {
		ch, err := NewMPMC[int](1)
		require.NoError(t, err)
		pool := fiber.NewPool(0)

		handle, err := task.Spawn[[]int](ctx, pool, task.Func[[]int](func(inner *task.Context) []int {
			var got []int
			for i := 0; i < 3; i++ {
				v, err := ch.Recv(inner)
				require.NoError(t, err)
				got = append(got, v)
			}
			return got
		}))
		require.NoError(t, err)

		for _, v := range []int{10, 20, 30} {
			require.NoError(t, ch.Send(ctx, v))
		}
		return task.Join[[]int](ctx, handle)
	}))
	require.Equal(t, []int{10, 20, 30}, result)
}

func TestBoundedMPSCRejectsSecondReceiver(t *testing.T) {
	ch, err := NewMPSC[int](2)
	require.NoError(t, err)
	_, err = ch.NewReceiver()
	require.NoError(t, err)
	_, err = ch.NewReceiver()
	require.Error(t, err)
}

func TestBoundedCloseWakesReceiver(t *testing.T) {
	result := task.RunBlocking[error](task.Func[error](func(ctx *task.Context) error {
		ch, err := NewMPMC[int](2)
		require.NoError(t, err)
		pool := fiber.NewPool(0)
		sender := ch.NewSender()

		handle, err := task.Spawn[error](ctx, pool, task.Func[error](func(inner *task.Context) error {
			_, err := ch.Recv(inner)
			return err
		}))
		require.NoError(t, err)

		sender.Close()
		return task.Join[error](ctx, handle)
	}))
	require.ErrorIs(t, result, ferr.ErrClosed)
}
