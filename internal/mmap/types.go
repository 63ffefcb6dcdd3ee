package mmap

import "errors"

var (
	// ErrInvalidSize is returned for a non-positive mapping size.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrHintUnsupported is returned when an address hint is given on a
	// platform that cannot honor it.
	ErrHintUnsupported = errors.New("mmap: address hint not supported on this platform")
	// ErrUnsupported is returned on platforms without anonymous mappings.
	ErrUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")
)

// Options controls how an anonymous mapping is created.
type Options struct {
	// Shared maps the region MAP_SHARED so it survives fork(2) as the same pages.
	Shared bool
	// Hint is the preferred start address, 0 lets the kernel choose.
	Hint uintptr
	// Flags are extra platform mapping flags OR-ed into the request.
	Flags int
}
