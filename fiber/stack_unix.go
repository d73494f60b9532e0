//go:build linux || darwin

package fiber

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const guardPageBytes = 4096

// stack is an mmap'd, readable/writable region with a PROT_NONE guard page
// at the low address end to turn overflow into a fault instead of silent
// corruption.
type stack struct {
	mem []byte // includes the guard page
}

// defaultStackSize returns RLIMIT_STACK, clamped to a sane range, the way
// spec.md §4.1 specifies sizing fibers off the platform stack rlimit.
func defaultStackSize() int {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &rlim); err != nil {
		return 2 << 20 // 2 MiB fallback
	}
	size := int(rlim.Cur)
	if size <= 0 || size > 64<<20 {
		size = 2 << 20
	}
	return size
}

func pageRound(n int) int {
	const pageSize = 4096
	return (n + pageSize - 1) &^ (pageSize - 1)
}

func newStack(size int) (*stack, error) {
	if size <= 0 {
		size = defaultStackSize()
	}
	size = pageRound(size)
	total := size + guardPageBytes

	mem, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", total, err)
	}
	if err := unix.Mprotect(mem[:guardPageBytes], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("mprotect guard page: %w", err)
	}
	return &stack{mem: mem}, nil
}

// top returns the highest usable address of the stack (stacks grow down on
// both amd64 and arm64).
func (s *stack) top() uintptr {
	return uintptrOf(s.mem) + uintptr(len(s.mem))
}

func (s *stack) unmap() error {
	return unix.Munmap(s.mem)
}

// adviseFree tells the kernel the usable (non-guard) pages can be reclaimed
// under memory pressure without the mapping being torn down, so the pool can
// cheaply keep the VMA around for reuse.
func (s *stack) adviseFree() error {
	return unix.Madvise(s.mem[guardPageBytes:], unix.MADV_FREE)
}
