package mmap

import (
	"sync/atomic"
	"unsafe"
)

// Mapping represents an anonymous memory mapping.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	shared bool
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// MapAnon creates a read-write anonymous mapping of exactly size bytes.
func MapAnon(size int, opts Options) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size, opts)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:   data,
		size:   size,
		shared: opts.Shared,
		unmap:  unmapFunc,
	}, nil
}

// Close unmaps the full extent that was mapped. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		data := m.data
		m.data = nil
		return m.unmap(data)
	}
	return nil
}

// Bytes returns the mapped memory.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Shared reports whether the mapping was created MAP_SHARED.
func (m *Mapping) Shared() bool {
	return m.shared
}

// Addr returns the start address of the mapping, or 0 once closed.
func (m *Mapping) Addr() uintptr {
	if m.closed.Load() || len(m.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.data[0])) //nolint:gosec // address is only reported, never dereferenced
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}
