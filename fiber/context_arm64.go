//go:build arm64

package fiber

import "unsafe"

// sysContext holds the AAPCS64 callee-saved general registers (X19-X28),
// frame pointer (X29), link register (X30), SP, and the callee-saved FP/SIMD
// registers (D8-D15), which spec.md §4.1 calls out as aarch64-specific
// ("floating-point callee-saved registers are saved on aarch64").
type sysContext struct {
	x19, x20, x21, x22, x23, x24, x25, x26, x27, x28 uintptr
	x29                                               uintptr // frame pointer
	sp                                                uintptr
	x30                                               uintptr // link register
	d8, d9, d10, d11, d12, d13, d14, d15              uint64
}

//go:noescape
func rawSwitch(from, to *sysContext)

func fiberTrampoline()

func newTrampolineContext(s *stack, arg *trampolineArg) sysContext {
	top := s.top()
	sp := top &^ 0xF

	sp -= 16
	*(*uintptr)(unsafe.Pointer(sp)) = uintptr(unsafe.Pointer(arg))

	return sysContext{
		sp:  sp,
		x30: funcPC(fiberTrampoline),
	}
}

func funcPC(f func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&f))
}
