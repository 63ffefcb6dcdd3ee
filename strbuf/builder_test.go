package strbuf

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memarena"
)

func newBuilder(t *testing.T, s string) (*memarena.Manager, memarena.Arena, *Builder) {
	t.Helper()
	m := memarena.New()
	a := m.NewArena()
	b, err := New(m, a, s)
	require.NoError(t, err)
	return m, a, b
}

func TestNew(t *testing.T) {
	m, a, b := newBuilder(t, "hello")

	assert.Equal(t, "hello", b.String())
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 5, b.Cap())

	raw, err := m.Bytes(b.Ptr())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00"), raw)

	r, err := m.Report(a)
	require.NoError(t, err)
	require.Len(t, r.Chunks, 1)
	assert.Equal(t, "builder_test.go", filepath.Base(r.Chunks[0].Site.File))
}

func TestBuilder_Append(t *testing.T) {
	m, a, b := newBuilder(t, "")

	require.NoError(t, b.Append("abc"))
	require.NoError(t, b.AppendBytes([]byte("def")))
	require.NoError(t, b.Append(""))
	require.NoError(t, b.Appendf("-%d", 42))

	assert.Equal(t, "abcdef-42", b.String())
	s, err := m.String(b.Ptr())
	require.NoError(t, err)
	assert.Equal(t, "abcdef-42", s)

	// Old storage is released as the buffer grows.
	r, _ := m.Report(a)
	assert.Len(t, r.Chunks, 1)
}

func TestBuilder_AppendByte(t *testing.T) {
	m, a, b := newBuilder(t, "")

	for i := range 100 {
		require.NoError(t, b.AppendByte(byte('a'+i%26)))
		require.Greater(t, b.Cap(), b.Len(), "capacity is reserved before every byte")
	}
	require.NoError(t, b.AppendByte(0))

	assert.Equal(t, 100, b.Len())
	assert.Equal(t, strings.Repeat("abcdefghijklmnopqrstuvwxyz", 4)[:100], b.String())

	raw, _ := m.Bytes(b.Ptr())
	assert.Equal(t, byte(0), raw[100])

	r, _ := m.Report(a)
	assert.Len(t, r.Chunks, 1)
}

func TestBuilder_AppendByteGrowsGeometrically(t *testing.T) {
	_, _, b := newBuilder(t, "")

	moves := 0
	last := b.Ptr()
	for range 1000 {
		require.NoError(t, b.AppendByte('x'))
		if b.Ptr() != last {
			moves++
			last = b.Ptr()
		}
	}
	assert.Less(t, moves, 40)
}

func TestBuilder_SetAndReserve(t *testing.T) {
	_, _, b := newBuilder(t, "a long initial value")

	require.NoError(t, b.Set("short"))
	assert.Equal(t, "short", b.String())
	assert.Equal(t, 20, b.Cap(), "set never shrinks")

	p := b.Ptr()
	require.NoError(t, b.Reserve(10))
	assert.Equal(t, p, b.Ptr(), "enough room already")

	require.NoError(t, b.Reserve(64))
	assert.Equal(t, 64, b.Cap())
	assert.NotEqual(t, p, b.Ptr())
	assert.Equal(t, "short", b.String())

	assert.ErrorIs(t, b.Reserve(-1), memarena.ErrInvalidSize)
}

func TestBuilder_Strip(t *testing.T) {
	m, a, b := newBuilder(t, " \t\n padded text \r\n")

	p, err := b.Strip()
	require.NoError(t, err)
	s, _ := m.String(p)
	assert.Equal(t, "padded text", s)
	assert.Equal(t, a, p.Arena())
	assert.Equal(t, " \t\n padded text \r\n", b.String())

	require.NoError(t, b.Set("   "))
	p, err = b.Strip()
	require.NoError(t, err)
	n, _ := m.Size(p)
	assert.Equal(t, 1, n)
}

func TestBuilder_Dup(t *testing.T) {
	m, _, b := newBuilder(t, "copy me")
	other := m.NewArena()

	p, err := b.Dup(other)
	require.NoError(t, err)
	assert.Equal(t, other, p.Arena())

	raw, _ := m.Bytes(p)
	assert.Equal(t, []byte("copy me\x00"), raw)
}

func TestBuilder_Free(t *testing.T) {
	m, a, b := newBuilder(t, "gone")
	p := b.Ptr()

	require.NoError(t, b.Free())
	require.NoError(t, b.Free())
	assert.True(t, b.Ptr().IsZero())
	assert.Equal(t, "", b.String())

	_, err := m.Bytes(p)
	assert.ErrorIs(t, err, memarena.ErrInvalidHandle)
	_, err = b.Strip()
	assert.ErrorIs(t, err, memarena.ErrInvalidHandle)

	require.NoError(t, b.Set("back"))
	assert.Equal(t, "back", b.String())
	assert.Equal(t, a, b.Ptr().Arena())
}

func TestBuilder_PtrContext(t *testing.T) {
	m := memarena.New()
	a := m.NewArena()
	anchor, err := m.Alloc(a, 1)
	require.NoError(t, err)

	b, err := New(m, anchor, "x")
	require.NoError(t, err)
	assert.Equal(t, a, b.Ptr().Arena())
}

func TestNew_InvalidContext(t *testing.T) {
	m := memarena.New()
	_, err := New(m, memarena.Arena{}, "x")
	assert.ErrorIs(t, err, memarena.ErrInvalidHandle)
}
