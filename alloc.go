package memarena

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/memarena/internal/arena"
)

type callOptions struct {
	zero   bool
	shared bool
	req    arena.Request
	into   Context
	site   Site
}

// CallOption adjusts a single Alloc or Realloc call.
type CallOption func(*callOptions)

// Zeroed clears the payload before it is returned.
func Zeroed() CallOption {
	return func(o *callOptions) { o.zero = true }
}

// Shared backs the allocation by an anonymous MAP_SHARED mapping instead
// of the heap. The memory stays visible to both sides of a fork.
func Shared() CallOption {
	return func(o *callOptions) { o.shared = true }
}

// MapAt asks for the mapping to start at addr. It implies Shared. Whether
// the hint is honored is up to the operating system.
func MapAt(addr uintptr) CallOption {
	return func(o *callOptions) {
		o.shared = true
		o.req.Hint = addr
	}
}

// MapFlags ORs flags into the mapping flags. It implies Shared.
func MapFlags(flags int) CallOption {
	return func(o *callOptions) {
		o.shared = true
		o.req.Flags |= flags
	}
}

// Into makes Realloc place the new chunk in the arena ctx resolves to
// instead of the arena that owns the old one.
func Into(ctx Context) CallOption {
	return func(o *callOptions) { o.into = ctx }
}

// At records site instead of the caller's location. Wrappers use it to
// report their own caller.
func At(site Site) CallOption {
	return func(o *callOptions) { o.site = site }
}

func newCallOptions(site Site, optFns []CallOption) callOptions {
	o := callOptions{site: site}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Alloc reserves size bytes in the arena ctx resolves to and returns a
// handle to them. A size of zero is a valid, empty allocation.
func (m *Manager) Alloc(ctx Context, size int, opts ...CallOption) (Ptr, error) {
	o := newCallOptions(callerSite(1), opts)

	a, err := m.resolve(ctx)
	if err != nil {
		return Ptr{}, m.fail("alloc", o.site, err)
	}
	if size < 0 {
		return Ptr{}, m.fail("alloc", o.site, fmt.Errorf("%w: %d", ErrInvalidSize, size))
	}

	store := m.opts.heapStore
	if o.shared {
		store = m.opts.mappedStore
	}
	c, err := m.allocate(a, size, store, o.req, o.zero, o.site)
	if err != nil {
		return Ptr{}, m.fail("alloc", o.site, err)
	}
	return ptrOf(c), nil
}

// Realloc moves the allocation p to a chunk of newSize bytes and returns
// the new handle. The first min(old, new) bytes are preserved and the
// backing (heap or mapped) is kept. p is invalid afterwards.
//
// A newSize of zero keeps the current size. Without Into that leaves p
// untouched; with Into the chunk is moved to the other arena as is.
//
// If the old chunk's store fails to release its memory, Realloc returns
// the new handle together with the error.
func (m *Manager) Realloc(p Ptr, newSize int, opts ...CallOption) (Ptr, error) {
	o := newCallOptions(callerSite(1), opts)

	c, err := m.chunk(p)
	if err != nil {
		return Ptr{}, m.fail("realloc", o.site, err)
	}
	if newSize < 0 {
		return Ptr{}, m.fail("realloc", o.site, fmt.Errorf("%w: %d", ErrInvalidSize, newSize))
	}

	owner := c.Owner()
	target := owner
	if o.into != nil {
		if target, err = m.resolve(o.into); err != nil {
			return Ptr{}, m.fail("realloc", o.site, err)
		}
	}

	oldSize := c.Size()
	if newSize == 0 {
		if target == owner {
			return p, nil
		}
		newSize = oldSize
	}

	nc, err := m.allocate(target, newSize, c.Store(), arena.Request{}, false, o.site)
	if err != nil {
		m.opts.metricsCollector.RecordRealloc(oldSize, newSize, err)
		return Ptr{}, m.fail("realloc", o.site, err)
	}
	copy(nc.Payload(), c.Payload())

	if err := owner.Free(c); err != nil {
		m.opts.metricsCollector.RecordRealloc(oldSize, newSize, err)
		if errors.Is(err, arena.ErrRelease) {
			// The old chunk is already unlinked; the copy is all that is left.
			m.opts.logger.LogFree(p, oldSize, o.site, err)
			return ptrOf(nc), m.fail("realloc", o.site, err)
		}
		return Ptr{}, m.fail("realloc", o.site, errors.Join(err, target.Free(nc)))
	}
	m.opts.logger.LogFree(p, oldSize, o.site, nil)
	m.opts.metricsCollector.RecordRealloc(oldSize, newSize, nil)

	return ptrOf(nc), nil
}

// Strdup copies s into a new heap allocation followed by a NUL byte.
func (m *Manager) Strdup(ctx Context, s string) (Ptr, error) {
	site := callerSite(1)

	a, err := m.resolve(ctx)
	if err != nil {
		return Ptr{}, m.fail("strdup", site, err)
	}
	c, err := m.allocate(a, len(s)+1, m.opts.heapStore, arena.Request{}, false, site)
	if err != nil {
		return Ptr{}, m.fail("strdup", site, err)
	}
	buf := c.Payload()
	copy(buf, s)
	buf[len(s)] = 0

	return ptrOf(c), nil
}

// Free releases the single allocation *p and sets *p to the zero handle.
// The rest of the arena is untouched. *p is also zeroed when the chunk was
// unlinked but its store failed to release the memory.
func (m *Manager) Free(p *Ptr) error {
	site := callerSite(1)
	if p == nil {
		return m.fail("free", site, invalidHandle("nil ptr"))
	}

	c, err := m.chunk(*p)
	if err != nil {
		return m.fail("free", site, err)
	}
	size := c.Size()
	err = c.Owner().Free(c)
	m.opts.logger.LogFree(*p, size, site, err)
	m.opts.metricsCollector.RecordFree(size, err)
	if err != nil {
		if errors.Is(err, arena.ErrRelease) {
			*p = Ptr{}
		}
		return m.fail("free", site, err)
	}

	*p = Ptr{}
	return nil
}

// Bytes returns the payload of p. The slice aliases arena memory and must
// not be used after p is freed or its arena destroyed.
func (m *Manager) Bytes(p Ptr) ([]byte, error) {
	c, err := m.chunk(p)
	if err != nil {
		return nil, m.fail("bytes", callerSite(1), err)
	}
	return c.Payload(), nil
}

// String returns the payload of p up to the first NUL byte.
func (m *Manager) String(p Ptr) (string, error) {
	c, err := m.chunk(p)
	if err != nil {
		return "", m.fail("string", callerSite(1), err)
	}
	b := c.Payload()
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// Size returns the payload size of p.
func (m *Manager) Size(p Ptr) (int, error) {
	c, err := m.chunk(p)
	if err != nil {
		return 0, m.fail("size", callerSite(1), err)
	}
	return c.Size(), nil
}

func (m *Manager) allocate(a *arena.Arena, size int, store arena.Store, req arena.Request, zero bool, site Site) (*arena.Chunk, error) {
	start := time.Now()
	c, err := a.Alloc(size, store, req, zero, site)
	m.opts.metricsCollector.RecordAlloc(size, store.Kind(), time.Since(start), err)
	if err != nil {
		m.opts.logger.LogAlloc(Ptr{}, size, store.Kind(), site, err)
		return nil, err
	}
	m.opts.logger.LogAlloc(ptrOf(c), size, c.Backing(), site, nil)
	return c, nil
}
