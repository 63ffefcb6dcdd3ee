package mem

import (
	"unsafe"
)

// Alignment is the start alignment of every chunk extent.
const Alignment = 16

// AllocAligned allocates a zeroed byte slice of the given size whose first
// byte sits on an Alignment boundary. Returns nil if size <= 0.
//
// The slice is over-allocated by up to Alignment-1 bytes; len and cap of the
// result are both exactly size so appends never spill into the slack.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment-1)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((Alignment - (addr & (Alignment - 1))) & (Alignment - 1))

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether b starts on an Alignment boundary.
func IsAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))&(Alignment-1) == 0 //nolint:gosec // address check only
}
