package memarena

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestReport(t *testing.T) {
	m := New()
	a := m.NewArena()
	p, _ := m.Alloc(a, 16)
	q, _ := m.Alloc(a, 3, Shared())
	defer m.Destroy(&a)

	r, err := m.Report(q)
	require.NoError(t, err)
	require.Len(t, r.Chunks, 2)

	assert.Equal(t, a, r.Arena)
	assert.Equal(t, 19, r.Total)
	assert.Equal(t, p, r.Chunks[0].Ptr)
	assert.Equal(t, Heap, r.Chunks[0].Backing)
	assert.Equal(t, q, r.Chunks[1].Ptr)
	assert.Equal(t, Mapped, r.Chunks[1].Backing)
	assert.NotZero(t, r.Chunks[0].Addr)
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	m := New(WithLogger(logger), WithVerbosity(1))

	a := m.NewArena()
	_, err := m.Alloc(a, 16)
	require.NoError(t, err)
	_, err = m.Strdup(a, "abcdefg")
	require.NoError(t, err)

	require.NoError(t, m.Summary(a, 2))
	assert.Zero(t, buf.Len(), "levels above the verbosity are silent")

	require.NoError(t, m.Summary(a, 1))
	lines := jsonLines(t, &buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "arena summary", lines[0]["msg"])
	assert.EqualValues(t, 24, lines[0]["total"])
	assert.EqualValues(t, a.id, lines[0]["arena"])
	assert.Contains(t, lines[1]["msg"], ": 16B for summary_test.go:")
	assert.Contains(t, lines[2]["msg"], ": 8B for summary_test.go:")
	assert.Equal(t, "heap", lines[2]["backing"])
	assert.Equal(t, "end of arena summary", lines[3]["msg"])

	// Summaries never change the arena.
	r, _ := m.Report(a)
	assert.Equal(t, 24, r.Total)
}

func TestSummary_ValidatesHandle(t *testing.T) {
	m := New(WithVerbosity(-1))
	assert.ErrorIs(t, m.Summary(Arena{id: 5}, 0), ErrInvalidHandle)
}

func TestSprintf(t *testing.T) {
	t.Run("default capacity", func(t *testing.T) {
		m := New()
		a := m.NewArena()

		p, err := m.Sprintf(a, "%s:%d", "abc", 42)
		require.NoError(t, err)

		n, _ := m.Size(p)
		assert.Equal(t, DefaultFormatBufferSize, n)
		s, _ := m.String(p)
		assert.Equal(t, "abc:42", s)
	})

	t.Run("truncates", func(t *testing.T) {
		m := New(WithFormatBufferSize(8))
		a := m.NewArena()

		p, err := m.Sprintf(a, "%s", "abcdefghijkl")
		require.NoError(t, err)

		b, _ := m.Bytes(p)
		assert.Equal(t, []byte("abcdefg\x00"), b)
	})

	t.Run("ptr context", func(t *testing.T) {
		m := New(WithFormatBufferSize(16))
		a := m.NewArena()
		p, _ := m.Alloc(a, 1)

		q, err := m.Sprintf(p, "x")
		require.NoError(t, err)
		assert.Equal(t, a, q.Arena())

		r, _ := m.Report(a)
		assert.Equal(t, 17, r.Total)
	})

	t.Run("invalid context", func(t *testing.T) {
		m := New()
		_, err := m.Sprintf(Ptr{}, "x")
		assert.ErrorIs(t, err, ErrInvalidHandle)
	})
}
