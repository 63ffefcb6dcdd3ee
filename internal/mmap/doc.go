// Package mmap provides anonymous memory mappings used as an off-heap
// backing store for arena chunks.
//
// # Usage
//
//	m, err := mmap.MapAnon(4096, mmap.Options{Shared: true})
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes()
//
// # Shared Mappings
//
// With Options.Shared the region is mapped MAP_SHARED|MAP_ANON, so a child
// produced by fork(2) observes the same pages as its parent. Without it the
// mapping is private. Options.Hint asks the kernel to place the mapping at a
// specific address and Options.Flags is OR-ed into the mapping flags; both
// are passed through unchecked.
//
// # Platform Support
//
//   - Linux: mmap(2) including address hints
//   - Other Unix: mmap(2); a non-zero Hint returns ErrHintUnsupported
//   - Windows: VirtualAlloc (Shared and Flags have no effect)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure
// no goroutine touches Bytes() after Close returns.
package mmap
