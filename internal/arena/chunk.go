package arena

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"unsafe"
)

// HeaderSize is the size of the in-band header that precedes each payload.
const HeaderSize = 32

const (
	headerMagic uint32 = 0x4D41524E // "MARN"

	flagMapped uint32 = 1 << 0
)

// Header layout (little endian):
//
//	[0:4]   magic
//	[4:8]   flags
//	[8:12]  arena id
//	[12:16] slot
//	[16:20] generation
//	[20:24] reserved
//	[24:32] payload size
const (
	offMagic = 0
	offFlags = 4
	offArena = 8
	offSlot  = 12
	offGen   = 16
	offSize  = 24
)

// Backing identifies where a chunk's memory comes from.
type Backing uint8

const (
	// Heap chunks live in ordinary Go memory.
	Heap Backing = iota
	// Mapped chunks live in an anonymous shared mapping.
	Mapped
)

func (b Backing) String() string {
	switch b {
	case Heap:
		return "heap"
	case Mapped:
		return "mapped"
	default:
		return "Backing(" + strconv.Itoa(int(b)) + ")"
	}
}

// Site is the source location that requested an allocation.
type Site struct {
	File string
	Line int
}

func (s Site) String() string {
	if s.File == "" {
		return "???:0"
	}
	return filepath.Base(s.File) + ":" + strconv.Itoa(s.Line)
}

// Chunk is the bookkeeping for one allocation.
type Chunk struct {
	block   Block
	store   Store
	size    int
	backing Backing
	site    Site
	slot    uint32
	gen     uint32

	prev  *Chunk
	next  *Chunk
	owner *Arena
}

// Payload returns the caller-visible bytes. len and cap are both Size().
func (c *Chunk) Payload() []byte {
	raw := c.block.Bytes()
	end := HeaderSize + c.size
	return raw[HeaderSize:end:end]
}

// Size returns the payload size in bytes.
func (c *Chunk) Size() int { return c.size }

// Extent returns header plus payload, the number of bytes taken from the store.
func (c *Chunk) Extent() int { return HeaderSize + c.size }

// Backing returns the store kind the chunk was allocated from.
func (c *Chunk) Backing() Backing { return c.backing }

// Site returns the allocation call site.
func (c *Chunk) Site() Site { return c.site }

// Slot returns the slot index within the owning arena.
func (c *Chunk) Slot() uint32 { return c.slot }

// Gen returns the slot generation the chunk was allocated under.
func (c *Chunk) Gen() uint32 { return c.gen }

// Owner returns the owning arena, or nil once released.
func (c *Chunk) Owner() *Arena { return c.owner }

// Store returns the store the chunk was acquired from.
func (c *Chunk) Store() Store { return c.store }

// Addr returns the address of the first payload byte. It is for
// diagnostics only and must never be turned back into a pointer.
func (c *Chunk) Addr() uintptr {
	raw := c.block.Bytes()
	if len(raw) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&raw[0])) + HeaderSize //nolint:gosec // reported, never dereferenced
}

// Next returns the following chunk in allocation order, or nil at the tail.
func (c *Chunk) Next() *Chunk { return c.next }

func (c *Chunk) writeHeader() {
	h := c.block.Bytes()[:HeaderSize]
	var flags uint32
	if c.backing == Mapped {
		flags |= flagMapped
	}
	binary.LittleEndian.PutUint32(h[offMagic:], headerMagic)
	binary.LittleEndian.PutUint32(h[offFlags:], flags)
	binary.LittleEndian.PutUint32(h[offArena:], c.owner.id)
	binary.LittleEndian.PutUint32(h[offSlot:], c.slot)
	binary.LittleEndian.PutUint32(h[offGen:], c.gen)
	binary.LittleEndian.PutUint32(h[offGen+4:], 0)
	binary.LittleEndian.PutUint64(h[offSize:], uint64(c.size)) //nolint:gosec // size is never negative
}

func (c *Chunk) verifyHeader() error {
	raw := c.block.Bytes()
	if len(raw) < HeaderSize {
		return fmt.Errorf("%w: extent shorter than header", ErrCorruptHeader)
	}
	h := raw[:HeaderSize]
	if got := binary.LittleEndian.Uint32(h[offMagic:]); got != headerMagic {
		return fmt.Errorf("%w: magic %#x", ErrCorruptHeader, got)
	}
	if binary.LittleEndian.Uint32(h[offSlot:]) != c.slot ||
		binary.LittleEndian.Uint32(h[offGen:]) != c.gen ||
		binary.LittleEndian.Uint32(h[offArena:]) != c.owner.id {
		return fmt.Errorf("%w: identity mismatch", ErrCorruptHeader)
	}
	if binary.LittleEndian.Uint64(h[offSize:]) != uint64(c.size) { //nolint:gosec // size is never negative
		return fmt.Errorf("%w: size mismatch", ErrCorruptHeader)
	}
	mapped := binary.LittleEndian.Uint32(h[offFlags:])&flagMapped != 0
	if mapped != (c.backing == Mapped) {
		return fmt.Errorf("%w: backing flag mismatch", ErrCorruptHeader)
	}
	return nil
}

// HeaderInfo is the decoded in-band header of an extent.
type HeaderInfo struct {
	Arena  uint32
	Slot   uint32
	Gen    uint32
	Size   uint64
	Mapped bool
}

// ReadHeader decodes the header at the start of raw. It is what another
// process sharing a mapped extent would use to identify the chunk.
func ReadHeader(raw []byte) (HeaderInfo, error) {
	if len(raw) < HeaderSize {
		return HeaderInfo{}, fmt.Errorf("%w: extent shorter than header", ErrCorruptHeader)
	}
	if got := binary.LittleEndian.Uint32(raw[offMagic:]); got != headerMagic {
		return HeaderInfo{}, fmt.Errorf("%w: magic %#x", ErrCorruptHeader, got)
	}
	return HeaderInfo{
		Arena:  binary.LittleEndian.Uint32(raw[offArena:]),
		Slot:   binary.LittleEndian.Uint32(raw[offSlot:]),
		Gen:    binary.LittleEndian.Uint32(raw[offGen:]),
		Size:   binary.LittleEndian.Uint64(raw[offSize:]),
		Mapped: binary.LittleEndian.Uint32(raw[offFlags:])&flagMapped != 0,
	}, nil
}
