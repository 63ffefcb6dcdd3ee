package memarena

import (
	"fmt"
	"runtime"

	"github.com/hupe1980/memarena/internal/arena"
)

// Site is the source location that requested an operation. It is recorded
// on every chunk and named in every error.
type Site = arena.Site

// Backing identifies where a chunk's memory comes from.
type Backing = arena.Backing

const (
	// Heap chunks live in ordinary Go memory.
	Heap = arena.Heap
	// Mapped chunks live in an anonymous MAP_SHARED mapping and stay
	// visible to both sides of a fork.
	Mapped = arena.Mapped
)

// HeaderSize is the number of bookkeeping bytes stored in front of every
// payload. A chunk of n payload bytes takes HeaderSize+n bytes from its store.
const HeaderSize = arena.HeaderSize

// Context names the arena an operation works in. It is either an Arena
// handle or a Ptr, in which case the arena that owns the Ptr is used. This
// lets code that was only handed a buffer allocate alongside it.
type Context interface {
	isContext()
}

// Arena is an opaque handle to a group of allocations. The zero value is
// never valid.
type Arena struct {
	id uint32
}

func (Arena) isContext() {}

// IsZero reports whether a is the zero handle.
func (a Arena) IsZero() bool { return a.id == 0 }

func (a Arena) String() string { return fmt.Sprintf("arena#%d", a.id) }

// Ptr is an opaque handle to one allocation. It encodes the owning arena,
// the slot in that arena's slot table and the slot generation, so a released
// or reused slot is detected instead of aliased. The zero value is never valid.
type Ptr struct {
	arena uint32
	slot  uint32
	gen   uint32
}

func (Ptr) isContext() {}

// IsZero reports whether p is the zero handle.
func (p Ptr) IsZero() bool { return p == Ptr{} }

// Arena returns the handle of the arena encoded in p. It does not check
// that p is still live; use (*Manager).Owner for that.
func (p Ptr) Arena() Arena { return Arena{id: p.arena} }

func (p Ptr) String() string { return fmt.Sprintf("ptr#%d.%d.%d", p.arena, p.slot, p.gen) }

func ptrOf(c *arena.Chunk) Ptr {
	return Ptr{arena: c.Owner().ID(), slot: c.Slot(), gen: c.Gen()}
}

// Caller returns the site of the function skip frames above the caller of
// Caller. Wrappers pass the result to At so allocations are attributed to
// their own callers:
//
//	func (b *Buffer) grow(n int) error {
//		_, err := m.Realloc(b.p, n, memarena.At(memarena.Caller(1)))
//		return err
//	}
func Caller(skip int) Site {
	return callerSite(skip + 1)
}

// callerSite returns the location skip frames above its caller.
func callerSite(skip int) Site {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{}
	}
	return Site{File: file, Line: line}
}
