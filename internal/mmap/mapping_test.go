package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWrite(t *testing.T) {
	for _, shared := range []bool{false, true} {
		m, err := MapAnon(8192, Options{Shared: shared})
		require.NoError(t, err)

		data := m.Bytes()
		require.Len(t, data, 8192)
		assert.Equal(t, 8192, m.Size())
		assert.Equal(t, shared, m.Shared())
		assert.NotZero(t, m.Addr())

		// Anonymous pages start zeroed
		for i := range data {
			if data[i] != 0 {
				t.Fatalf("byte %d not zero", i)
			}
		}

		data[0] = 0xAA
		data[len(data)-1] = 0x55
		assert.Equal(t, byte(0xAA), m.Bytes()[0])
		assert.Equal(t, byte(0x55), m.Bytes()[8191])

		require.NoError(t, m.Close())
	}
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0, Options{})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1, Options{})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapping_CloseIdempotent(t *testing.T) {
	m, err := MapAnon(64, Options{Shared: true})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Addr())
}

func TestMapping_CloseUsesFullExtent(t *testing.T) {
	m, err := MapAnon(100, Options{})
	require.NoError(t, err)

	var got int
	orig := m.unmap
	m.unmap = func(b []byte) error {
		got = len(b)
		return orig(b)
	}

	require.NoError(t, m.Close())
	assert.Equal(t, 100, got)
}
