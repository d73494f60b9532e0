package fiber

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFiberIsIdle(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)
	require.Equal(t, StateIdle, f.State())
	require.Greater(t, f.StackBytes(), 0)
}

func TestSwitchRunsEntryAndReturnsOnExit(t *testing.T) {
	caller, err := New(0)
	require.NoError(t, err)
	callee, err := New(0)
	require.NoError(t, err)

	var ran bool
	var gotArg any
	callee.SetStart(func(arg any) {
		ran = true
		gotArg = arg
		Exit(callee, caller, func() {})
	}, "payload")

	Switch(caller, callee)

	require.True(t, ran, "entry must run before control returns to the caller")
	require.Equal(t, "payload", gotArg)
	require.Equal(t, StateExited, callee.State())
}

func TestSwitchRoundTripsMultipleTimes(t *testing.T) {
	caller, err := New(0)
	require.NoError(t, err)
	callee, err := New(0)
	require.NoError(t, err)

	var trace []string
	callee.SetStart(func(any) {
		trace = append(trace, "callee-1")
		Switch(callee, caller)
		trace = append(trace, "callee-2")
		Exit(callee, caller, func() {})
	}, nil)

	trace = append(trace, "caller-1")
	Switch(caller, callee)
	trace = append(trace, "caller-2")
	Switch(caller, callee)
	trace = append(trace, "caller-3")

	require.Equal(t, []string{"caller-1", "callee-1", "caller-2", "callee-2", "caller-3"}, trace)
}
