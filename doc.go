// Package memarena is a region-based memory manager.
//
// Allocations are grouped into arenas. Each allocation can be released on
// its own, but the usual pattern is to release a whole arena at once when
// the work it belongs to is done.
//
// # Quick Start
//
//	m := memarena.New()
//	a := m.NewArena()
//
//	buf, _ := m.Alloc(a, 16, memarena.Zeroed())
//	name, _ := m.Strdup(a, "abcdefg")   // 8 bytes including the NUL
//
//	m.Free(&buf)                        // the arena now holds 8 bytes
//	m.Destroy(&a)                       // name is released with it
//
// # Handles
//
// Arena and Ptr are small comparable values, not pointers. A Ptr encodes
// its arena, a slot and the slot's generation, so using a Ptr after it was
// freed, or after its arena was destroyed, fails with ErrInvalidHandle
// instead of touching someone else's memory. Use Bytes to get at the
// payload.
//
// Every operation that needs an arena takes a Context, which is either an
// Arena or a Ptr. Passing a Ptr means "the arena that owns this", so code
// that was only handed a buffer can allocate next to it:
//
//	p, _ := m.Alloc(a, 64)
//	q, _ := m.Alloc(p, 32)   // same arena as p
//
// # Backing
//
// Allocations come from the heap unless Shared, MapAt or MapFlags is
// given, in which case each one gets its own anonymous MAP_SHARED mapping
// that stays visible across fork. The backing of an allocation never
// changes, including across Realloc. Custom strategies plug in through
// WithHeapStore and WithMappedStore.
//
// # Errors
//
// Failures are returned as *OpError, which names the operation and the
// caller's file and line. Match causes with errors.Is against
// ErrInvalidHandle, ErrOutOfMemory and ErrInvalidSize. With WithStrict the
// fatal handler is called first; the default one logs the error with a
// stack trace and exits.
//
// # Concurrency
//
// A Manager may be shared between goroutines, and different arenas may be
// used concurrently. A single arena must not be.
package memarena
