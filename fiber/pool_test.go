package fiber

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolGetAllocatesWhenEmpty(t *testing.T) {
	p := NewPool(64 * 1024)
	f, err := p.Get()
	require.NoError(t, err)
	require.NotNil(t, f)

	active, idle := p.Counts()
	require.Equal(t, 1, active)
	require.Equal(t, 0, idle)
}

func TestPoolPutReusesUnderCapacity(t *testing.T) {
	p := NewPool(64 * 1024)
	f, err := p.Get()
	require.NoError(t, err)

	p.put(f)
	active, idle := p.Counts()
	require.Equal(t, 0, active)
	require.Equal(t, 1, idle)

	f2, err := p.Get()
	require.NoError(t, err)
	require.Same(t, f, f2, "Get should hand back the pooled fiber rather than allocate a new one")
}

func TestPoolCapacityFormula(t *testing.T) {
	p := NewPool(64 * 1024)
	p.active = 100
	require.Equal(t, 36, p.capacity()) // ceil(100*0.20) + 16
}
