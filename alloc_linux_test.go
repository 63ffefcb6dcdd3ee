//go:build linux

package memarena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAlloc_MapOptions(t *testing.T) {
	m := New()
	a := m.NewArena()
	defer m.Destroy(&a)

	p, err := m.Alloc(a, 64, MapFlags(unix.MAP_NORESERVE))
	require.NoError(t, err)

	// A plain hint is advisory; the kernel may place the mapping elsewhere.
	q, err := m.Alloc(a, 64, MapAt(0x7e0000000000))
	require.NoError(t, err)

	r, err := m.Report(a)
	require.NoError(t, err)
	require.Len(t, r.Chunks, 2)
	for _, c := range r.Chunks {
		assert.Equal(t, Mapped, c.Backing, "map options imply Shared")
	}
	assert.Equal(t, p, r.Chunks[0].Ptr)
	assert.Equal(t, q, r.Chunks[1].Ptr)
}
