package memarena

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/memarena/internal/arena"
)

// ChunkInfo describes one live allocation.
type ChunkInfo struct {
	Ptr     Ptr
	Addr    uintptr
	Size    int
	Backing Backing
	Site    Site
}

// ArenaReport is a snapshot of an arena in allocation order.
type ArenaReport struct {
	Arena  Arena
	Total  int
	Chunks []ChunkInfo
}

// Report returns a snapshot of the arena ctx resolves to. It does not
// change the arena.
func (m *Manager) Report(ctx Context) (ArenaReport, error) {
	a, err := m.resolve(ctx)
	if err != nil {
		return ArenaReport{}, m.fail("report", callerSite(1), err)
	}
	return report(a), nil
}

func report(a *arena.Arena) ArenaReport {
	r := ArenaReport{
		Arena:  Arena{id: a.ID()},
		Total:  a.Total(),
		Chunks: make([]ChunkInfo, 0, a.Len()),
	}
	for c := a.First(); c != nil; c = c.Next() {
		r.Chunks = append(r.Chunks, ChunkInfo{
			Ptr:     ptrOf(c),
			Addr:    c.Addr(),
			Size:    c.Size(),
			Backing: c.Backing(),
			Site:    c.Site(),
		})
	}
	return r
}

// Summary logs the contents of the arena ctx resolves to: a header with the
// total, one line per allocation, and a footer. Nothing is logged when
// level exceeds the Manager's verbosity, but ctx is still validated.
func (m *Manager) Summary(ctx Context, level int) error {
	site := callerSite(1)
	a, err := m.resolve(ctx)
	if err != nil {
		return m.fail("summary", site, err)
	}
	if level > m.opts.verbosity {
		return nil
	}

	r := report(a)
	l := m.opts.logger.WithArena(r.Arena)
	l.Info("arena summary", slog.Int("total", r.Total), slog.Int("chunks", len(r.Chunks)))
	for _, c := range r.Chunks {
		l.Info(fmt.Sprintf("%#x: %dB for %s", c.Addr, c.Size, c.Site),
			slog.String("ptr", c.Ptr.String()),
			slog.String("backing", c.Backing.String()),
		)
	}
	l.Info("end of arena summary")
	return nil
}

// Sprintf formats into a new heap allocation of the Manager's format
// buffer size (8192 bytes by default). Output longer than the buffer minus
// one byte is truncated; the text is always NUL terminated and the unused
// tail of the buffer is zero.
func (m *Manager) Sprintf(ctx Context, format string, args ...any) (Ptr, error) {
	site := callerSite(1)

	a, err := m.resolve(ctx)
	if err != nil {
		return Ptr{}, m.fail("sprintf", site, err)
	}

	size := m.opts.formatBufferSize
	c, err := m.allocate(a, size, m.opts.heapStore, StoreRequest{}, true, site)
	if err != nil {
		return Ptr{}, m.fail("sprintf", site, err)
	}

	s := fmt.Sprintf(format, args...)
	copy(c.Payload()[:size-1], s)

	return ptrOf(c), nil
}
