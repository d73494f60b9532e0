package amutex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coropath/fibra/ferr"
	"github.com/coropath/fibra/fiber"
	"github.com/coropath/fibra/internal/safe"
	"github.com/coropath/fibra/task"
)

func TestMutexTryLockUncontended(t *testing.T) {
	m := New(0)
	g, err := m.TryLock()
	require.NoError(t, err)
	*g.Value() = 5
	g.Unlock()

	g2, err := m.TryLock()
	require.NoError(t, err)
	require.Equal(t, 5, *g2.Value())
	g2.Unlock()
}

func TestMutexTryLockContended(t *testing.T) {
	m := New(0)
	g, err := m.TryLock()
	require.NoError(t, err)

	_, err = m.TryLock()
	require.ErrorIs(t, err, ferr.ErrWouldBlock)

	g.Unlock()
}

func TestMutexLockBlocksUntilRelease(t *testing.T) {
	result := task.RunBlocking[string](task.Func[string](func(ctx *task.Context) string {
		m := New(0)
		held, err := m.Lock(ctx)
		require.NoError(t, err)

		pool := fiber.NewPool(0)
		var order []string
		handle, err := task.Spawn[string](ctx, pool, task.Func[string](func(inner *task.Context) string {
			order = append(order, "waiter-start")
			g, err := m.Lock(inner)
			require.NoError(t, err)
			g.Unlock()
			order = append(order, "waiter-locked")
			return "done"
		}))
		require.NoError(t, err)

		order = append(order, "holder-unlock")
		held.Unlock()

		res := task.Join[string](ctx, handle)
		require.Equal(t, []string{"waiter-start", "holder-unlock", "waiter-locked"}, order)
		return res
	}))
	require.Equal(t, "done", result)
}

func TestMutexPoisonOnPanic(t *testing.T) {
	result := task.RunBlocking[error](task.Func[error](func(ctx *task.Context) error {
		m := New(0)
		pool := fiber.NewPool(0)

		handle, err := task.Spawn[int](ctx, pool, task.Func[int](func(inner *task.Context) int {
			g, err := m.Lock(inner)
			require.NoError(t, err)
			defer g.Unlock()
			panic("holder exploded")
		}))
		require.NoError(t, err)

		mp := task.BlockOnCrossThread[safe.MaybePanic[int]](ctx, handle)
		require.NotNil(t, mp.Panic, "the panicking holder's panic must be captured, not crash the fiber")

		g, lockErr := m.Lock(ctx)
		require.ErrorIs(t, lockErr, ferr.ErrPoisoned)
		require.NotNil(t, g)
		g.Unlock()

		m.ClearPoison()
		g2, err2 := m.Lock(ctx)
		require.NoError(t, err2)
		g2.Unlock()
		return nil
	}))
	require.NoError(t, result)
}

func TestMutexLockBlockingBackend(t *testing.T) {
	m := New(0)
	g, err := m.LockBlocking(nil)
	require.NoError(t, err)
	g.Unlock()
}
