// File: pool/page_linux.go
//go:build linux
// +build linux

//
// Package pool: Linux page allocator backed by anonymous mmap.
//
// Pages that are a multiple of the 2 MiB hugepage size try MAP_HUGETLB first.
// Falls back to the Go heap if the mapping fails.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "golang.org/x/sys/unix"

const hugePageSize = 2 << 20

// allocPage maps size bytes of private anonymous memory and returns the
// matching unmap function, or a heap slice with a nil unmap.
func allocPage(size int) ([]byte, func([]byte)) {
	const prot = unix.PROT_READ | unix.PROT_WRITE
	const flags = unix.MAP_ANON | unix.MAP_PRIVATE
	if size%hugePageSize == 0 {
		if mem, err := unix.Mmap(-1, 0, size, prot, flags|unix.MAP_HUGETLB); err == nil {
			return mem, unmapPage
		}
	}
	mem, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return make([]byte, size), nil
	}
	return mem, unmapPage
}

func unmapPage(mem []byte) {
	_ = unix.Munmap(mem)
}
