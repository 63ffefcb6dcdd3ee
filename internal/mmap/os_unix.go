//go:build unix && !linux

package mmap

import (
	"golang.org/x/sys/unix"
)

func osMapAnon(size int, opts Options) ([]byte, func([]byte) error, error) {
	if opts.Hint != 0 {
		return nil, nil, ErrHintUnsupported
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | opts.Flags
	if opts.Shared {
		flags |= unix.MAP_SHARED
	} else {
		flags |= unix.MAP_PRIVATE
	}

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}
