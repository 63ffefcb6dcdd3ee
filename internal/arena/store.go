package arena

import (
	"fmt"

	"github.com/hupe1980/memarena/internal/mem"
	"github.com/hupe1980/memarena/internal/mmap"
)

// Request carries the per-allocation mapping parameters. HeapStore ignores it.
type Request struct {
	// Hint is the preferred start address of the mapping, 0 for any.
	Hint uintptr
	// Flags are OR-ed into the mapping flags.
	Flags int
}

// Block is one extent obtained from a Store.
type Block interface {
	Bytes() []byte
	Size() int
}

// Store is a backing-store strategy. A block must be returned to the same
// Store that produced it.
type Store interface {
	Kind() Backing
	Acquire(n int, req Request) (Block, error)
	Release(b Block) error
}

// heapBlock is an aligned slice of Go memory.
type heapBlock []byte

func (b heapBlock) Bytes() []byte { return b }
func (b heapBlock) Size() int     { return len(b) }

// HeapStore hands out 16-byte aligned Go memory.
type HeapStore struct{}

// Kind implements Store.
func (HeapStore) Kind() Backing { return Heap }

// Acquire implements Store.
func (HeapStore) Acquire(n int, _ Request) (Block, error) {
	buf := mem.AllocAligned(n)
	if buf == nil {
		return nil, fmt.Errorf("heap: cannot allocate %d bytes", n)
	}
	return heapBlock(buf), nil
}

// Release implements Store. The memory goes back to the garbage collector.
func (HeapStore) Release(b Block) error {
	if _, ok := b.(heapBlock); !ok {
		return fmt.Errorf("%w: %T released to heap store", ErrForeignBlock, b)
	}
	return nil
}

// MappedStore hands out MAP_SHARED anonymous mappings, one per chunk.
type MappedStore struct{}

// Kind implements Store.
func (MappedStore) Kind() Backing { return Mapped }

// Acquire implements Store.
func (MappedStore) Acquire(n int, req Request) (Block, error) {
	return mmap.MapAnon(n, mmap.Options{
		Shared: true,
		Hint:   req.Hint,
		Flags:  req.Flags,
	})
}

// Release implements Store. The full extent that was mapped is unmapped.
func (MappedStore) Release(b Block) error {
	m, ok := b.(*mmap.Mapping)
	if !ok {
		return fmt.Errorf("%w: %T released to mapped store", ErrForeignBlock, b)
	}
	return m.Close()
}
