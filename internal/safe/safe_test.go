package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesPanic(t *testing.T) {
	result := Run(func() int {
		panic("boom")
	})
	require.NotNil(t, result.Panic)
	require.Contains(t, result.Panic.Error(), "boom")
}

func TestRunNoPanic(t *testing.T) {
	result := Run(func() int { return 42 })
	require.Nil(t, result.Panic)
	require.Equal(t, 42, result.Value)
}

func TestMaybePanicRecover(t *testing.T) {
	ok := Ok(5)
	require.NotPanics(t, func() { ok.Recover() })

	mp := Run(func() int { panic("x") })
	require.Panics(t, func() { mp.Recover() })
}

func TestWithRecoverHandlesPanic(t *testing.T) {
	var mu sync.Mutex
	var captured error
	wrapped := WithRecover(func() {
		panic("broke")
	}, func(err error) {
		mu.Lock()
		captured = err
		mu.Unlock()
	})
	require.NotPanics(t, wrapped)
	mu.Lock()
	defer mu.Unlock()
	require.Error(t, captured)
}

func TestWithRecoverNilFunc(t *testing.T) {
	require.Nil(t, WithRecover(nil))
}

func TestGoRecoversPanic(t *testing.T) {
	done := make(chan struct{})
	Go(func() {
		defer close(done)
		panic("goroutine panic")
	})
	<-done
}
