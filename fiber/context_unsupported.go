//go:build !amd64 && !arm64

package fiber

// sysContext has no implementation outside amd64/arm64.
type sysContext struct{}

func rawSwitch(from, to *sysContext) {
	panic("fiber: stackful fibers are only implemented for amd64 and arm64")
}

func newTrampolineContext(s *stack, arg *trampolineArg) sysContext {
	panic("fiber: stackful fibers are only implemented for amd64 and arm64")
}
