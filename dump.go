package memarena

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/memarena/internal/arena"
	"github.com/hupe1980/memarena/internal/compress"
)

// Compression selects how Dump encodes its output.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return compress.Parse(s)
}

const (
	dumpMagic   = "MDMP"
	dumpVersion = 1

	maxDumpBytes = 1 << 30
)

// ErrBadDump is returned by ReadDump for input that is not a valid dump.
var ErrBadDump = errors.New("memarena: malformed dump")

// DumpRecord is one allocation captured by Dump.
type DumpRecord struct {
	Slot    uint32
	Gen     uint32
	Backing Backing
	Site    Site
	Data    []byte
}

// DumpFile is the decoded form of a dump.
type DumpFile struct {
	Arena       uint32
	Total       int
	Compression Compression
	Records     []DumpRecord
}

// Dump writes every live allocation of the arena ctx resolves to, payload
// included, to w. The arena is not changed.
func (m *Manager) Dump(w io.Writer, ctx Context, c Compression) error {
	site := callerSite(1)

	a, err := m.resolve(ctx)
	if err != nil {
		return m.fail("dump", site, err)
	}

	body := encodeArena(a)
	block, err := compress.Encode(body, c)
	if err != nil {
		return fmt.Errorf("memarena: dump: %w", err)
	}

	hdr := make([]byte, 0, len(dumpMagic)+2)
	hdr = append(hdr, dumpMagic...)
	hdr = append(hdr, dumpVersion, byte(c))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("memarena: dump: %w", err)
	}
	if _, err := w.Write(block); err != nil {
		return fmt.Errorf("memarena: dump: %w", err)
	}
	return nil
}

func encodeArena(a *arena.Arena) []byte {
	var buf []byte
	buf = binary.AppendUvarint(buf, uint64(a.ID()))
	buf = binary.AppendUvarint(buf, uint64(a.Total())) //nolint:gosec // never negative
	buf = binary.AppendUvarint(buf, uint64(a.Len()))   //nolint:gosec // never negative
	for c := a.First(); c != nil; c = c.Next() {
		site := c.Site()
		buf = binary.AppendUvarint(buf, uint64(c.Slot()))
		buf = binary.AppendUvarint(buf, uint64(c.Gen()))
		buf = append(buf, byte(c.Backing()))
		buf = binary.AppendUvarint(buf, uint64(len(site.File)))
		buf = append(buf, site.File...)
		buf = binary.AppendUvarint(buf, uint64(site.Line)) //nolint:gosec // line numbers are positive
		buf = binary.AppendUvarint(buf, uint64(c.Size()))  //nolint:gosec // never negative
		buf = append(buf, c.Payload()...)
	}
	return buf
}

// ReadDump decodes a dump written by Dump.
func ReadDump(r io.Reader) (*DumpFile, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxDumpBytes+1))
	if err != nil {
		return nil, fmt.Errorf("memarena: read dump: %w", err)
	}
	if len(raw) > maxDumpBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrBadDump, maxDumpBytes)
	}
	if len(raw) < len(dumpMagic)+2 || string(raw[:len(dumpMagic)]) != dumpMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadDump)
	}
	if v := raw[len(dumpMagic)]; v != dumpVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadDump, v)
	}
	c := Compression(raw[len(dumpMagic)+1])

	body, err := compress.Decode(raw[len(dumpMagic)+2:], c, maxDumpBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDump, err)
	}

	d, err := decodeArena(body)
	if err != nil {
		return nil, err
	}
	d.Compression = c
	return d, nil
}

type dumpReader struct {
	*bytes.Reader
	err error
}

func (r *dumpReader) uvarint(max uint64) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(r)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrBadDump, err)
		return 0
	}
	if v > max {
		r.err = fmt.Errorf("%w: value %d exceeds %d", ErrBadDump, v, max)
		return 0
	}
	return v
}

func (r *dumpReader) bytes(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(r.Len()) {
		r.err = fmt.Errorf("%w: truncated", ErrBadDump)
		return nil
	}
	b := make([]byte, n)
	_, _ = io.ReadFull(r, b)
	return b
}

func decodeArena(body []byte) (*DumpFile, error) {
	r := &dumpReader{Reader: bytes.NewReader(body)}

	d := &DumpFile{
		Arena: uint32(r.uvarint(1<<32 - 1)),
		Total: int(r.uvarint(maxDumpBytes)), //nolint:gosec // bounded
	}
	n := r.uvarint(uint64(len(body)))
	if r.err != nil {
		return nil, r.err
	}

	d.Records = make([]DumpRecord, 0, n)
	for range n {
		var rec DumpRecord
		rec.Slot = uint32(r.uvarint(1<<32 - 1))
		rec.Gen = uint32(r.uvarint(1<<32 - 1))
		if b, err := r.ReadByte(); err != nil {
			if r.err == nil {
				r.err = fmt.Errorf("%w: truncated", ErrBadDump)
			}
		} else {
			rec.Backing = Backing(b)
		}
		rec.Site.File = string(r.bytes(r.uvarint(uint64(len(body)))))
		rec.Site.Line = int(r.uvarint(1<<31 - 1)) //nolint:gosec // bounded
		rec.Data = r.bytes(r.uvarint(uint64(len(body))))
		if r.err != nil {
			return nil, r.err
		}
		d.Records = append(d.Records, rec)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadDump, r.Len())
	}
	return d, nil
}
