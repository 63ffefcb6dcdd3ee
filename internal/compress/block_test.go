package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("arena chunk "), 512)
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i*131 + 7)
	}

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, random, {}} {
				block, err := Encode(data, typ)
				require.NoError(t, err)

				got, err := Decode(block, typ, len(data))
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				assert.True(t, bytes.Equal(data, got))
			}
		})
	}
}

func TestEncode_ShrinksCompressibleData(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 4096)
	for _, typ := range []Type{LZ4, ZSTD} {
		block, err := Encode(data, typ)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data)/2, typ.String())
	}

	block, err := Encode(data, None)
	require.NoError(t, err)
	assert.Len(t, block, HeaderSize+len(data))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, None, 1<<20)
	assert.ErrorIs(t, err, ErrShortBlock)

	block, err := Encode(bytes.Repeat([]byte{1}, 1024), ZSTD)
	require.NoError(t, err)
	_, err = Decode(block[:len(block)-1], ZSTD, 1<<20)
	assert.ErrorIs(t, err, ErrShortBlock)

	_, err = Decode(append(block, 0), ZSTD, 1<<20)
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Decode(block, None, 1<<20)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		got, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := Parse("brotli")
	assert.Error(t, err)
	assert.Equal(t, "Type(9)", Type(9).String())
}

func TestDecode_RawSizeLimit(t *testing.T) {
	// Claims 0xF0000000 decoded bytes from a single packed byte.
	hostile := []byte{0x00, 0x00, 0x00, 0xF0, 0x01, 0x00, 0x00, 0x00, 0x00}

	for _, typ := range []Type{LZ4, ZSTD} {
		_, err := Decode(hostile, typ, 1<<20)
		assert.ErrorIs(t, err, ErrTooLarge, typ.String())
	}

	block, err := Encode(bytes.Repeat([]byte{7}, 4096), LZ4)
	require.NoError(t, err)
	_, err = Decode(block, LZ4, 4095)
	assert.ErrorIs(t, err, ErrTooLarge)
	got, err := Decode(block, LZ4, 4096)
	require.NoError(t, err)
	assert.Len(t, got, 4096)
}

func TestDecode_CompressedEmptyBlock(t *testing.T) {
	block := []byte{0, 0, 0, 0, 1, 0, 0, 0, 0}
	_, err := Decode(block, LZ4, 1<<20)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
