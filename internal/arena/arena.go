package arena

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryAcquirer is an interface for budgeting chunk memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrOutOfMemory is returned when a store or the memory budget refuses a request.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrReleased is returned for any operation on a released arena.
	ErrReleased = errors.New("arena: use after release")
	// ErrStale is returned when a slot/generation pair no longer names a live chunk.
	ErrStale = errors.New("arena: stale or unknown chunk")
	// ErrForeignChunk is returned when a chunk is handed to an arena that does not own it.
	ErrForeignChunk = errors.New("arena: chunk belongs to another arena")
	// ErrCorruptHeader is returned when a chunk's in-band header does not match its bookkeeping.
	ErrCorruptHeader = errors.New("arena: corrupt chunk header")
	// ErrForeignBlock is returned when a block is released to a store that did not produce it.
	ErrForeignBlock = errors.New("arena: block released to wrong store")
	// ErrNegativeSize is returned for negative allocation sizes.
	ErrNegativeSize = errors.New("arena: negative size")
	// ErrRelease is returned by Free when the chunk was unlinked but its
	// store failed to take the extent back. The chunk is gone either way.
	ErrRelease = errors.New("arena: store release failed")
)

// Stats tracks arena memory usage.
//
//   - BytesUsed: payload bytes of live chunks (the running total)
//   - BytesReserved: header + payload bytes of live chunks
//   - HeapChunks/MappedChunks: live chunks per backing
//   - TotalAllocs/TotalFrees: cumulative counts
type Stats struct {
	Chunks        int
	BytesUsed     int
	BytesReserved int
	HeapChunks    int
	MappedChunks  int
	TotalAllocs   uint64
	TotalFrees    uint64
}

type slotEntry struct {
	chunk *Chunk
	gen   uint32
}

// Arena is an ordered set of chunks released in bulk by Release.
type Arena struct {
	id uint32

	// head is the sentinel; it is never handed out and never released.
	head  Chunk
	tail  *Chunk
	total int
	count int

	slots []slotEntry
	free  *roaring.Bitmap

	stats    Stats
	acquirer MemoryAcquirer
	released bool
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory budget for the arena.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates an empty arena with the given identifier.
func New(id uint32, opts ...Option) *Arena {
	a := &Arena{
		id:   id,
		free: roaring.New(),
	}
	a.head.owner = a
	a.tail = &a.head

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the arena identifier.
func (a *Arena) ID() uint32 { return a.id }

// Total returns the payload bytes of all live chunks.
func (a *Arena) Total() int { return a.total }

// Len returns the number of live chunks.
func (a *Arena) Len() int { return a.count }

// Released reports whether Release has been called.
func (a *Arena) Released() bool { return a.released }

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.Chunks = a.count
	s.BytesUsed = a.total
	return s
}

// Alloc obtains a chunk of size payload bytes from store and appends it at
// the tail. If zero is set the payload is cleared before it is returned.
func (a *Arena) Alloc(size int, store Store, req Request, zero bool, site Site) (*Chunk, error) {
	if a.released {
		return nil, ErrReleased
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}

	extent := HeaderSize + size
	if err := a.acquire(int64(extent)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	block, err := store.Acquire(extent, req)
	if err != nil {
		a.releaseBudget(int64(extent))
		return nil, fmt.Errorf("%w: %s store: %w", ErrOutOfMemory, store.Kind(), err)
	}
	if len(block.Bytes()) < extent {
		_ = store.Release(block)
		a.releaseBudget(int64(extent))
		return nil, fmt.Errorf("%w: %s store returned %d bytes, want %d", ErrOutOfMemory, store.Kind(), len(block.Bytes()), extent)
	}

	c := &Chunk{
		block:   block,
		store:   store,
		size:    size,
		backing: store.Kind(),
		site:    site,
		owner:   a,
	}
	c.slot, c.gen = a.takeSlot(c)
	c.writeHeader()

	c.prev = a.tail
	a.tail.next = c
	a.tail = c

	a.total += size
	a.count++
	a.stats.BytesReserved += extent
	a.stats.TotalAllocs++
	a.countBacking(c.backing, 1)

	if zero {
		clear(c.Payload())
	}
	return c, nil
}

// Lookup returns the live chunk at slot if its generation matches.
func (a *Arena) Lookup(slot, gen uint32) (*Chunk, error) {
	if a.released {
		return nil, ErrReleased
	}
	if int(slot) >= len(a.slots) {
		return nil, ErrStale
	}
	e := a.slots[slot]
	if e.chunk == nil || e.gen != gen {
		return nil, ErrStale
	}
	return e.chunk, nil
}

// Free unlinks c in O(1) and returns its extent to the store it came from.
func (a *Arena) Free(c *Chunk) error {
	if a.released {
		return ErrReleased
	}
	if c == nil || c == &a.head {
		return ErrStale
	}
	if c.owner != a {
		return ErrForeignChunk
	}
	if live, err := a.Lookup(c.slot, c.gen); err != nil || live != c {
		return ErrStale
	}
	if err := c.verifyHeader(); err != nil {
		return err
	}

	c.prev.next = c.next
	if c.next != nil {
		c.next.prev = c.prev
	} else {
		a.tail = c.prev
	}

	a.total -= c.size
	a.count--
	a.stats.BytesReserved -= c.Extent()
	a.stats.TotalFrees++
	a.countBacking(c.backing, -1)
	a.putSlot(c.slot)

	if err := a.releaseChunk(c); err != nil {
		return fmt.Errorf("%w: %w", ErrRelease, err)
	}
	return nil
}

// Each calls fn for every live chunk in allocation order until fn returns false.
func (a *Arena) Each(fn func(*Chunk) bool) {
	if a.released {
		return
	}
	for c := a.head.next; c != nil; c = c.next {
		if !fn(c) {
			return
		}
	}
}

// First returns the oldest live chunk, or nil.
func (a *Arena) First() *Chunk { return a.head.next }

// Last returns the newest live chunk, or nil.
func (a *Arena) Last() *Chunk {
	if a.tail == &a.head {
		return nil
	}
	return a.tail
}

// Release returns every live chunk to its store and makes the arena
// unusable. All errors from the stores are joined; release continues past
// failures so no extent is leaked because of an earlier one.
func (a *Arena) Release() error {
	if a.released {
		return ErrReleased
	}
	a.released = true

	var errs []error
	c := a.head.next
	for c != nil {
		next := c.next
		if err := a.releaseChunk(c); err != nil {
			errs = append(errs, fmt.Errorf("chunk %d (%s): %w", c.slot, c.site, err))
		}
		c = next
	}

	a.head.next = nil
	a.tail = &a.head
	a.total = 0
	a.count = 0
	a.slots = nil
	a.free.Clear()
	a.stats.BytesReserved = 0
	a.stats.HeapChunks = 0
	a.stats.MappedChunks = 0

	return errors.Join(errs...)
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{id: %d, chunks: %d (heap %d, mapped %d), used: %d B, reserved: %d B, allocs: %d, frees: %d}",
		a.id, s.Chunks, s.HeapChunks, s.MappedChunks, s.BytesUsed, s.BytesReserved, s.TotalAllocs, s.TotalFrees,
	)
}

func (a *Arena) releaseChunk(c *Chunk) error {
	extent := c.Extent()
	// Wipe the magic so a stale *Chunk can never verify again.
	if raw := c.block.Bytes(); len(raw) >= HeaderSize {
		clear(raw[:4])
	}
	err := c.store.Release(c.block)
	a.releaseBudget(int64(extent))

	c.prev = nil
	c.next = nil
	c.owner = nil
	return err
}

// takeSlot reuses the lowest free slot or grows the table.
func (a *Arena) takeSlot(c *Chunk) (uint32, uint32) {
	if !a.free.IsEmpty() {
		slot := a.free.Minimum()
		a.free.Remove(slot)
		a.slots[slot].chunk = c
		return slot, a.slots[slot].gen
	}
	slot := uint32(len(a.slots)) //nolint:gosec // slot tables never approach 2^32 entries
	a.slots = append(a.slots, slotEntry{chunk: c, gen: 1})
	return slot, 1
}

func (a *Arena) putSlot(slot uint32) {
	e := &a.slots[slot]
	e.chunk = nil
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	a.free.Add(slot)
}

func (a *Arena) countBacking(b Backing, d int) {
	if b == Mapped {
		a.stats.MappedChunks += d
	} else {
		a.stats.HeapChunks += d
	}
}

func (a *Arena) acquire(n int64) error {
	if a.acquirer == nil {
		return nil
	}
	return a.acquirer.AcquireMemory(n)
}

func (a *Arena) releaseBudget(n int64) {
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(n)
	}
}
