package memarena

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			m := New()
			a := m.NewArena()
			defer m.Destroy(&a)

			big, err := m.Alloc(a, 4096, Zeroed())
			require.NoError(t, err)
			_, err = m.Strdup(a, "hello arena")
			require.NoError(t, err)
			_, err = m.Alloc(a, 64, Shared(), Zeroed())
			require.NoError(t, err)
			b, _ := m.Bytes(big)
			copy(b, bytes.Repeat([]byte("ab"), 100))

			var buf bytes.Buffer
			require.NoError(t, m.Dump(&buf, a, c))

			d, err := ReadDump(&buf)
			require.NoError(t, err)

			r, _ := m.Report(a)
			assert.Equal(t, a.id, d.Arena)
			assert.Equal(t, r.Total, d.Total)
			assert.Equal(t, c, d.Compression)
			require.Len(t, d.Records, len(r.Chunks))

			for i, rec := range d.Records {
				info := r.Chunks[i]
				assert.Equal(t, info.Ptr.slot, rec.Slot)
				assert.Equal(t, info.Ptr.gen, rec.Gen)
				assert.Equal(t, info.Backing, rec.Backing)
				assert.Equal(t, info.Site, rec.Site)

				payload, _ := m.Bytes(info.Ptr)
				assert.Equal(t, payload, rec.Data)
			}
		})
	}
}

func TestDump_Compresses(t *testing.T) {
	m := New()
	a := m.NewArena()
	_, err := m.Alloc(a, 1<<16, Zeroed())
	require.NoError(t, err)

	var plain, packed bytes.Buffer
	require.NoError(t, m.Dump(&plain, a, CompressionNone))
	require.NoError(t, m.Dump(&packed, a, CompressionZSTD))
	assert.Less(t, packed.Len(), plain.Len()/10)
}

func TestDump_InvalidArena(t *testing.T) {
	m := New()
	var buf bytes.Buffer
	assert.ErrorIs(t, m.Dump(&buf, Arena{}, CompressionNone), ErrInvalidHandle)
	assert.Zero(t, buf.Len())
}

func TestReadDump_Malformed(t *testing.T) {
	m := New()
	a := m.NewArena()
	_, _ = m.Strdup(a, "payload")

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf, a, CompressionNone))
	good := buf.Bytes()

	tests := map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("XXXX"), good[4:]...),
		"version":   append(append([]byte{}, good[:4]...), append([]byte{9}, good[5:]...)...),
		"truncated": good[:len(good)-3],
		"trailing":  append(append([]byte{}, good...), 0),
		// A single packed byte claiming almost 4 GiB of output.
		"huge raw size": {'M', 'D', 'M', 'P', dumpVersion, byte(CompressionLZ4), 0x00, 0x00, 0x00, 0xF0, 0x01, 0x00, 0x00, 0x00, 0x00},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDump(bytes.NewReader(in))
			assert.ErrorIs(t, err, ErrBadDump)
		})
	}
}
