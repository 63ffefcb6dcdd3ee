package memarena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	m := New(WithMetricsCollector(mc), WithMemoryLimit(1024))
	a := m.NewArena()

	p, err := m.Alloc(a, 10)
	require.NoError(t, err)
	_, err = m.Alloc(a, 20, Shared())
	require.NoError(t, err)
	_, err = m.Alloc(a, 4096)
	require.Error(t, err)

	p, err = m.Realloc(p, 40)
	require.NoError(t, err)
	require.NoError(t, m.Free(&p))
	require.Error(t, m.Free(&p))
	require.NoError(t, m.Destroy(&a))

	s := mc.GetStats()
	assert.Equal(t, int64(4), s.AllocCount, "realloc allocates too")
	assert.Equal(t, int64(1), s.AllocErrors)
	assert.Equal(t, int64(70), s.AllocBytes)
	assert.Equal(t, int64(1), s.MappedAllocCount)
	assert.Equal(t, int64(1), s.ReallocCount)
	assert.Zero(t, s.ReallocErrors)
	assert.Equal(t, int64(1), s.FreeCount, "invalid handles are rejected before release")
	assert.Equal(t, int64(40), s.FreeBytes)
	assert.Equal(t, int64(1), s.DestroyCount)
	assert.Equal(t, int64(1), s.DestroyChunks)
	assert.Equal(t, int64(20), s.DestroyBytes)
}

func TestLogger_Constructors(t *testing.T) {
	for _, l := range []*Logger{NewLogger(nil), NewJSONLogger(0), NewTextLogger(0), NoopLogger()} {
		require.NotNil(t, l.Logger)
		assert.NotNil(t, l.WithArena(Arena{id: 1}).Logger)
	}
}
