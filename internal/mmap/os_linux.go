//go:build linux

package mmap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func osMapAnon(size int, opts Options) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | opts.Flags
	if opts.Shared {
		flags |= unix.MAP_SHARED
	} else {
		flags |= unix.MAP_PRIVATE
	}

	if opts.Hint == 0 {
		data, err := unix.Mmap(-1, 0, size, prot, flags)
		if err != nil {
			return nil, nil, err
		}
		return data, unix.Munmap, nil
	}

	// unix.Mmap cannot carry an address, so go through the raw pointer API
	// and unmap with the same length.
	hint := unsafe.Pointer(opts.Hint) //nolint:govet,gosec // kernel placement hint, not a Go pointer
	ptr, err := unix.MmapPtr(-1, 0, hint, uintptr(size), prot, flags)
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(ptr), size)

	return data, func(b []byte) error {
		return unix.MunmapPtr(ptr, uintptr(len(b)))
	}, nil
}
