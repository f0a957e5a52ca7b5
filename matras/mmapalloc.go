//go:build linux || darwin

// Package matras's mmap allocator backs tree extents with anonymous
// mmap'd memory instead of the Go heap, which is how the original
// Tarantool matras sources its extents — large, page-aligned regions
// that can be released to the OS individually rather than waiting on
// GC. This is the realistic choice for a storage engine's block
// allocator; the plain heap allocator in heapalloc.go exists for tests
// and hosts that don't care.
package matras

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAlloc allocates an anonymous, private mapping of size bytes.
func MmapAlloc(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("matras.MmapAlloc: mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// MmapFree unmaps an extent previously returned by MmapAlloc. Passing
// any other slice is undefined behavior, same as calling munmap(2) on an
// address you didn't mmap.
func MmapFree(extent []byte) {
	_ = unix.Munmap(extent)
}
