//go:build amd64

package fiber

import "unsafe"

// sysContext holds the callee-saved integer registers plus stack pointer and
// program counter for the System V AMD64 ABI.
// Field order is load-bearing: asm_amd64.s indexes these by fixed byte
// offset (0, 8, 16, ...), not by Go's struct layout rules.
type sysContext struct {
	bx, bp, r12, r13, r14, r15 uintptr
	sp                         uintptr
	pc                         uintptr
}

// rawSwitch saves the callee-saved registers and SP of from, restores to's,
// and resumes to by returning into its saved PC.
// Single-threaded; to must not be currently running anywhere.
//
//go:noescape
func rawSwitch(from, to *sysContext)

// fiberTrampoline is the platform entry point a freshly started fiber's
// saved PC points at. It pops the *trampolineArg pushed by
// newTrampolineContext and calls runEntry, which never returns.
func fiberTrampoline()

// newTrampolineContext lays out a fresh stack so that the first rawSwitch
// into it resumes at fiberTrampoline with arg already on the stack for it to
// pop.
func newTrampolineContext(s *stack, arg *trampolineArg) sysContext {
	top := s.top()
	// Stack must be 16-byte aligned at the point a CALL would push a
	// return address, per the SysV AMD64 ABI; fiberTrampoline is entered
	// via RET (not CALL) so we account for the return-address slot below.
	sp := top &^ 0xF

	// Reserve one word for the argument fiberTrampoline pops, then one
	// word below it for the "return address" rawSwitch's RET will consume
	// (the address of fiberTrampoline itself).
	sp -= 8
	*(*uintptr)(unsafe.Pointer(sp)) = uintptr(unsafe.Pointer(arg))
	sp -= 8
	*(*uintptr)(unsafe.Pointer(sp)) = funcPC(fiberTrampoline)

	return sysContext{sp: sp}
}

func funcPC(f func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&f))
}
