package achan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/fiber"
	"github.com/coropath/fibra/task"
)

func TestOneshotHappyPath(t *testing.T) {
	result := task.RunBlocking[int](task.Func[int](func(ctx *task.Context) int {
		tx, rx := Oneshot[int]()
		pool := fiber.NewPool(0)

		handle, err := task.Spawn[int](ctx, pool, task.Func[int](func(inner *task.Context) int {
			v, err := rx.Recv(inner)
			require.NoError(t, err)
			return v
		}))
		require.NoError(t, err)

		v, err := tx.Send(7)
		require.NoError(t, err)
		require.Equal(t, 7, v)

		return task.Join[int](ctx, handle)
	}))
	require.Equal(t, 7, result)
}

func TestOneshotSendBeforeRecv(t *testing.T) {
	tx, rx := Oneshot[string]()
	_, err := tx.Send("hello")
	require.NoError(t, err)

	result := task.RunBlocking[string](task.Func[string](func(ctx *task.Context) string {
		v, err := rx.Recv(ctx)
		require.NoError(t, err)
		return v
	}))
	require.Equal(t, "hello", result)
}

func TestOneshotSenderDrop(t *testing.T) {
	result := task.RunBlocking[error](task.Func[error](func(ctx *task.Context) error {
		tx, rx := Oneshot[int]()
		pool := fiber.NewPool(0)

		handle, err := task.Spawn[error](ctx, pool, task.Func[error](func(inner *task.Context) error {
			_, err := rx.Recv(inner)
			return err
		}))
		require.NoError(t, err)

		tx.Close()
		return task.Join[error](ctx, handle)
	}))
	require.Error(t, result)
}

func TestOneshotReceiverDropSurfacesErrToSender(t *testing.T) {
	tx, rx := Oneshot[int]()
	rx.Close()
	v, err := tx.Send(99)
	require.Error(t, err)
	require.Equal(t, 99, v)
}
