package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
)

func newHost(n, rows int) *fileHost {
	lines := make(tracking.Lines, n)
	for i := range lines {
		lines[i] = string(rune('a' + i%26))
	}
	h := newFileHost(lines)
	h.rect = core.RectFromSize(0, 0, rows, 10)
	return h
}

func TestFileHostLayoutDiff(t *testing.T) {
	h := newHost(20, 5)

	ev := h.Layout()
	assert.Len(t, ev.NewOrReformatted, 5)
	assert.Empty(t, ev.Translated)

	h.ScrollBy(2)
	ev = h.Layout()
	assert.Len(t, ev.Translated, 3)
	require.Len(t, ev.NewOrReformatted, 2)
	assert.Equal(t, 5, ev.NewOrReformatted[0].Number)
}

func TestFileHostScrollClamp(t *testing.T) {
	h := newHost(10, 4)
	h.ScrollBy(-3)
	assert.Zero(t, h.offset)
	h.ScrollBy(100)
	assert.InDelta(t, 6, h.offset, 0)

	h.ZoomBy(100)
	assert.InDelta(t, maxZoom, h.scale, 0)
	h.ZoomBy(0.001)
	assert.InDelta(t, minZoom, h.scale, 0)
	assert.InDelta(t, 1, h.offset, 0)
}

func TestFileHostInsertLine(t *testing.T) {
	h := newHost(3, 3)
	before := h.Layout()
	require.Len(t, before.NewOrReformatted, 3)

	require.NoError(t, h.InsertLine(0, "new"))
	assert.Equal(t, 4, h.Snapshot().LineCount())

	ev := h.Layout()
	require.Len(t, ev.NewOrReformatted, 1)
	assert.Equal(t, 0, ev.NewOrReformatted[0].Number)
	require.Len(t, ev.Translated, 2)
	assert.Equal(t, before.NewOrReformatted[0].ID, ev.Translated[0].ID)
	assert.Equal(t, 1, ev.Translated[0].Number)
}

func TestFileHostBufferPositionToY(t *testing.T) {
	h := newHost(10, 5)
	y, ok := h.BufferPositionToY(4)
	require.True(t, ok)
	assert.InDelta(t, 2, y, 1e-9)

	_, ok = h.BufferPositionToY(10)
	assert.False(t, ok)
}

func TestFileHostDraw(t *testing.T) {
	h := newHost(4, 2)
	b := backend.NewNullBackend(10, 2)
	h.ScrollBy(1)
	h.Draw(b)
	assert.Equal(t, 'b', b.Cell(0, 0).Rune)
	assert.Equal(t, 'c', b.Cell(0, 1).Rune)
}
