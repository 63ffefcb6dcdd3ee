//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMapAnon(size int, opts Options) ([]byte, func([]byte) error, error) {
	// VirtualAlloc with MEM_COMMIT uses demand-paging, so pages are only
	// backed by physical memory when first touched. There is no fork on
	// Windows, so Shared and Flags are ignored.
	addr, err := windows.VirtualAlloc(opts.Hint, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size) //nolint:govet,gosec // VirtualAlloc result

	return data, func(b []byte) error {
		// MEM_RELEASE frees the entire reservation
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}, nil
}
