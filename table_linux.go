//go:build linux

package stationsum

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapTable backs a table with an anonymous mapping and asks the kernel
// for huge pages. The tables hold no Go pointers, so keeping them
// outside the heap is safe. Advice failure is fine, the mapping still
// works on 4K pages.
func mapTable[T any](n int) ([]T, func(), bool) {
	var zero T
	size := n * int(unsafe.Sizeof(zero))
	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, false
	}
	_ = unix.Madvise(b, unix.MADV_HUGEPAGE)
	t := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
	return t, func() { _ = unix.Munmap(b) }, true
}
