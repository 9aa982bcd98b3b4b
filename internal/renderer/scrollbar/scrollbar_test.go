package scrollbar

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/engine/placement"
	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/theme"
)

type staticSource struct{ res *placement.Result }

func (s *staticSource) Latest() *placement.Result { return s.res }

// identity maps line N to row N.
var identity = MapperFunc(func(line int) (float64, bool) { return float64(line), true })

func matchesOn(lines ...int) []placement.Match {
	out := make([]placement.Match, len(lines))
	for i, l := range lines {
		out[i] = placement.Match{Line: l, Color: marker.ColorRed, Count: 1}
	}
	return out
}

func TestComputeTicksDecimates(t *testing.T) {
	lines := make([]int, 1000)
	for i := range lines {
		lines[i] = i
	}

	ticks := ComputeTicks(matchesOn(lines...), 500, 0.5, identity)
	require.Len(t, ticks, 500)
	for i, tk := range ticks {
		require.Equal(t, 2*i, tk.Match.Line)
	}
}

func TestComputeTicksCoalesces(t *testing.T) {
	scaled := MapperFunc(func(line int) (float64, bool) { return float64(line) / 10, true })

	tests := []struct {
		name      string
		lines     []int
		thickness float64
		want      []int
	}{
		{"within thickness", []int{10, 13}, 0.5, []int{10}},
		{"exactly thickness apart", []int{10, 15}, 0.5, []int{10, 15}},
		{"chain measured from kept tick", []int{10, 13, 16, 19}, 0.5, []int{10, 16}},
		{"zero thickness keeps all", []int{10, 10}, 0, []int{10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks := ComputeTicks(matchesOn(tt.lines...), 500, tt.thickness, scaled)
			got := make([]int, len(ticks))
			for i, tk := range ticks {
				got[i] = tk.Match.Line
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeTicksSkipsUnmappable(t *testing.T) {
	odd := MapperFunc(func(line int) (float64, bool) { return float64(line), line%2 == 0 })
	ticks := ComputeTicks(matchesOn(1, 2, 3, 4), 500, 0.5, odd)
	require.Len(t, ticks, 2)
	assert.Equal(t, 2, ticks[0].Match.Line)
	assert.Equal(t, 4, ticks[1].Match.Line)
}

func newTestScrollbar(src ResultSource, height int) (*Scrollbar, *backend.NullBackend) {
	sb := New(DefaultConfig(), src, identity, theme.Default(), Options{Logger: zerolog.Nop()})
	sb.SetRect(core.RectFromSize(0, 0, height, 0))
	return sb, backend.NewNullBackend(2, height)
}

func TestDrawHalfBlocks(t *testing.T) {
	// Identity mapping in rows, so half rows come from fractional y.
	src := &staticSource{res: &placement.Result{Matches: matchesOn(0, 1, 3)}}
	sb, b := newTestScrollbar(src, 4)
	sb.mapper = MapperFunc(func(line int) (float64, bool) { return float64(line) / 2, true })

	require.NoError(t, sb.Draw(b))
	assert.Equal(t, fullBlock, b.Cell(0, 0).Rune)
	assert.Equal(t, lowerHalf, b.Cell(0, 1).Rune)
	assert.Equal(t, ' ', b.Cell(0, 2).Rune)
	assert.Equal(t, ' ', b.Cell(1, 0).Rune, "width comes from config")
}

func TestDrawTwoColorsInOneCell(t *testing.T) {
	matches := []placement.Match{
		{Line: 0, Color: marker.ColorRed},
		{Line: 1, Color: marker.ColorBlue},
	}
	src := &staticSource{res: &placement.Result{Matches: matches}}
	sb, b := newTestScrollbar(src, 2)
	sb.mapper = MapperFunc(func(line int) (float64, bool) { return float64(line) / 2, true })

	require.NoError(t, sb.Draw(b))
	cell := b.Cell(0, 0)
	assert.Equal(t, upperHalf, cell.Rune)
	colors := theme.Default()
	assert.Equal(t, theme.Resolve(colors, "marker.red"), cell.Style.Foreground)
	assert.Equal(t, theme.Resolve(colors, "marker.blue"), cell.Style.Background)
}

func TestNeedsRedraw(t *testing.T) {
	src := &staticSource{}
	sb, b := newTestScrollbar(src, 3)
	assert.True(t, sb.NeedsRedraw())

	require.NoError(t, sb.Draw(b))
	assert.False(t, sb.NeedsRedraw())

	src.res = &placement.Result{Matches: matchesOn(1)}
	assert.True(t, sb.NeedsRedraw(), "new completed result")
	require.NoError(t, sb.Draw(b))
	assert.Equal(t, upperHalf, b.Cell(0, 1).Rune)

	sb.Invalidate()
	assert.True(t, sb.NeedsRedraw())
	require.NoError(t, sb.Draw(b))

	sb.SetVisible(false)
	assert.True(t, sb.NeedsRedraw())
	require.NoError(t, sb.Draw(b))
	assert.Equal(t, ' ', b.Cell(0, 1).Rune)
	assert.Len(t, sb.Ticks(), 1, "hiding keeps reading the latest result")
}

func TestDrawPanicKeepsPreviousFrame(t *testing.T) {
	src := &staticSource{res: &placement.Result{Matches: matchesOn(0)}}
	var reported error
	sb := New(DefaultConfig(), src, identity, theme.Default(), Options{
		Logger:        zerolog.Nop(),
		OnRenderError: func(err error) { reported = err },
	})
	sb.SetRect(core.RectFromSize(0, 0, 2, 0))
	b := backend.NewNullBackend(1, 2)
	require.NoError(t, sb.Draw(b))

	sb.mapper = MapperFunc(func(int) (float64, bool) { panic("mapper exploded") })
	src.res = &placement.Result{Matches: matchesOn(1)}
	err := sb.Draw(b)
	assert.ErrorIs(t, err, ErrRenderPanic)
	assert.ErrorIs(t, reported, ErrRenderPanic)
	assert.Equal(t, upperHalf, b.Cell(0, 0).Rune)
	assert.True(t, sb.NeedsRedraw())
}
