package margin

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

func newTestMargin(t *testing.T, width, height int) (*Margin, *backend.NullBackend) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Width = width
	m := New(cfg, Options{Logger: zerolog.Nop()})
	m.SetRect(core.RectFromSize(0, 0, height, 0))
	b := backend.NewNullBackend(10, height)
	require.NoError(t, b.Init())
	return m, b
}

func el(text string) *glyph.Element {
	return &glyph.Element{Text: text, Style: core.DefaultStyle()}
}

func TestTransformApply(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
		y    float64
		want int
	}{
		{"identity", Transform{Scale: 1}, 4, 4},
		{"scrolled", Transform{Scale: 1, Translate: -3}, 4, 1},
		{"zoomed", Transform{Scale: 2}, 4, 8},
		{"fractional floors", Transform{Scale: 1, Translate: -0.5}, 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Apply(tt.y))
		})
	}
}

func TestDrawPlacesIcons(t *testing.T) {
	m, b := newTestMargin(t, 4, 5)
	m.Attach(el("●"), 1)
	m.Attach(el("?"), 1)
	m.Attach(el("✓"), 3)

	require.NoError(t, m.Draw(b))
	assert.Equal(t, "   │\n●? │\n   │\n✓  │\n   │\n", b.Dump())
}

func TestScrollAndZoomAreTransformOnly(t *testing.T) {
	m, b := newTestMargin(t, 2, 6)
	e := el("x")
	m.Attach(e, 4)

	m.SetScroll(2)
	require.NoError(t, m.Draw(b))
	assert.Equal(t, 'x', b.Cell(0, 2).Rune)

	m.SetZoom(1.5)
	require.NoError(t, m.Draw(b))
	assert.Equal(t, ' ', b.Cell(0, 2).Rune)
	assert.Equal(t, 'x', b.Cell(0, 4).Rune)
	assert.Equal(t, Transform{Scale: 1.5, Translate: -2}, m.Transform())

	m.SetZoom(0)
	assert.Equal(t, 1.5, m.Transform().Scale)
}

func TestDrawClipsOffscreenAndWideGlyphs(t *testing.T) {
	m, b := newTestMargin(t, 3, 3)
	m.Attach(el("中中"), 0)
	m.Attach(el("a"), -1)
	m.Attach(el("b"), 3)

	require.NoError(t, m.Draw(b))
	assert.Equal(t, "中│\n  │\n  │\n", b.Dump())
}

func TestMoveAndDetach(t *testing.T) {
	m, b := newTestMargin(t, 2, 4)
	e := el("x")
	m.Attach(e, 0)
	m.Move(e, 2)
	m.Move(el("ghost"), 1)
	require.Equal(t, 1, m.Len())

	require.NoError(t, m.Draw(b))
	assert.Equal(t, 'x', b.Cell(0, 2).Rune)

	m.Detach(e)
	require.NoError(t, m.Draw(b))
	assert.Equal(t, ' ', b.Cell(0, 2).Rune)
	assert.Zero(t, m.Len())
}

func TestHiddenMarginDrawsBlank(t *testing.T) {
	m, b := newTestMargin(t, 2, 2)
	m.Attach(el("x"), 0)
	m.SetVisible(false)

	require.NoError(t, m.Draw(b))
	assert.Equal(t, " │\n │\n", b.Dump())
}

func TestDrawPanicKeepsPreviousFrame(t *testing.T) {
	var reported error
	cfg := DefaultConfig()
	cfg.Width = 2
	m := New(cfg, Options{
		Logger:        zerolog.Nop(),
		OnRenderError: func(err error) { reported = err },
	})
	m.SetRect(core.RectFromSize(0, 0, 2, 0))
	b := backend.NewNullBackend(4, 2)

	m.Attach(el("x"), 0)
	require.NoError(t, m.Draw(b))

	m.Attach(nil, 1)
	err := m.Draw(b)
	assert.ErrorIs(t, err, ErrRenderPanic)
	assert.ErrorIs(t, reported, ErrRenderPanic)
	assert.Equal(t, "x│\n │\n", b.Dump())
}
