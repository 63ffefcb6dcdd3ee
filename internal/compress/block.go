// Package compress frames a single block of bytes with an optional LZ4 or
// ZSTD encoding.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores the block as is.
	None Type = 0
	// LZ4 favors speed.
	LZ4 Type = 1
	// ZSTD favors ratio.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Parse maps a name accepted by String back to its Type.
func Parse(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	}
	return None, fmt.Errorf("compress: unknown compression %q", s)
}

// HeaderSize is the size of the block header.
// Format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// A CompressedSize of 0 means the data is stored uncompressed.
const HeaderSize = 8

var (
	// ErrShortBlock is returned when a block is smaller than its header claims.
	ErrShortBlock = errors.New("compress: short block")
	// ErrSizeMismatch is returned when decoded data does not have the recorded size.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
	// ErrTrailingData is returned when bytes follow the end of a block.
	ErrTrailingData = errors.New("compress: trailing data after block")
	// ErrTooLarge is returned for blocks that do not fit the 32-bit header
	// or claim more decoded bytes than the caller allows.
	ErrTooLarge = errors.New("compress: block too large")
)

// maxDecoderMemory caps what a pooled zstd decoder may allocate for a
// single frame, whatever the frame header claims.
const maxDecoderMemory = 1 << 30

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecoderMemory))
	return dec
}

// Encode returns data framed with a block header. Data that does not
// shrink by at least 10% is stored uncompressed.
func Encode(data []byte, t Type) ([]byte, error) {
	if uint64(len(data)) > 1<<32-1 {
		return nil, ErrTooLarge
	}

	var packed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown compression %d", uint8(t))
	}

	out := make([]byte, HeaderSize, HeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data))) //nolint:gosec // checked above
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed))) //nolint:gosec // smaller than data
	return append(out, packed...), nil
}

// Decode reverses Encode. t must be the type the block was encoded with.
// A block claiming more than maxRaw decoded bytes is rejected before any
// output is allocated.
func Decode(block []byte, t Type, maxRaw int) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, ErrShortBlock
	}
	rawSize := int(binary.LittleEndian.Uint32(block[0:]))
	packedSize := int(binary.LittleEndian.Uint32(block[4:]))
	body := block[HeaderSize:]

	if rawSize > maxRaw {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, rawSize, maxRaw)
	}

	if packedSize == 0 {
		if len(body) < rawSize {
			return nil, ErrShortBlock
		}
		if len(body) > rawSize {
			return nil, ErrTrailingData
		}
		return body, nil
	}
	if len(body) < packedSize {
		return nil, ErrShortBlock
	}
	if len(body) > packedSize {
		return nil, ErrTrailingData
	}
	if rawSize == 0 {
		// Encode stores empty input as is.
		return nil, ErrSizeMismatch
	}

	switch t {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if n != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if len(out) != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compress: block is compressed but type is %s", t)
	}
}
