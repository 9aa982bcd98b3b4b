package glyph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/theme"
)

const testScript = `
function glyph(tag)
  if tag.kind == "question" then
    return { text = "?", color = "#00FF00", bold = true, offset = 0.5 }
  end
  if tag.kind == "resolved" then
    return 42
  end
  if tag.summary == "explode" then
    error("scripted failure")
  end
  return string.upper(string.sub(tag.id, 1, 1))
end
`

func luaTag(id string, kind marker.Kind, summary string) Tag {
	return Tag{
		Kind:   TagKindFor(kind),
		Marker: marker.Marker{ID: id, Kind: kind, Color: marker.ColorBlue, Summary: summary},
	}
}

func TestLuaFactory(t *testing.T) {
	f, err := NewLuaFactory(testScript, theme.Default())
	require.NoError(t, err)
	defer f.Close()

	t.Run("string result", func(t *testing.T) {
		el, err := f.Create(luaTag("abc", marker.KindComment, ""), lineAt(3))
		require.NoError(t, err)
		assert.Equal(t, "A", el.Text)
		assert.Equal(t, theme.Resolve(theme.Default(), "marker.blue"), el.Style.Foreground)
	})

	t.Run("table result", func(t *testing.T) {
		el, err := f.Create(luaTag("q", marker.KindQuestion, ""), lineAt(3))
		require.NoError(t, err)
		assert.Equal(t, "?", el.Text)
		assert.Equal(t, core.ColorFromRGB(0, 255, 0), el.Style.Foreground)
		assert.True(t, el.Style.Attributes.Has(core.AttrBold))
		assert.Equal(t, 0.5, el.Offset)
	})

	t.Run("unusable result", func(t *testing.T) {
		_, err := f.Create(luaTag("r", marker.KindResolved, ""), lineAt(3))
		assert.ErrorIs(t, err, ErrBadLuaResult)
	})

	t.Run("script error", func(t *testing.T) {
		_, err := f.Create(luaTag("x", marker.KindComment, "explode"), lineAt(3))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scripted failure")
	})
}

func TestLuaFactoryLoadErrors(t *testing.T) {
	_, err := NewLuaFactory(`x = 1`, nil)
	assert.ErrorIs(t, err, ErrNoGlyphFunc)

	_, err = NewLuaFactory(`function glyph(`, nil)
	assert.Error(t, err)

	_, err = NewLuaFactory(`os.exit(1)`, nil)
	assert.Error(t, err, "os library is not opened")
}

func TestLuaFactoryTimeout(t *testing.T) {
	script := `
function glyph(tag)
  if tag.summary == "spin" then
    while true do end
  end
  return "x"
end
`
	f, err := NewLuaFactory(script, nil, WithCallTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer f.Close()

	start := time.Now()
	_, err = f.Create(luaTag("a", marker.KindComment, "spin"), lineAt(0))
	assert.ErrorIs(t, err, ErrScriptTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	el, err := f.Create(luaTag("b", marker.KindComment, ""), lineAt(1))
	require.NoError(t, err, "state stays usable after a timeout")
	assert.Equal(t, "x", el.Text)

	reg := Registry{}
	reg.Register(TagKindFor(marker.KindComment), MarkerOrder, f)
	src := mapSource{
		1: {luaTag("c", marker.KindComment, "spin")},
		2: {luaTag("d", marker.KindComment, "")},
	}
	r, _ := newTestReconciler(reg, src)
	st := r.Reconcile(LayoutEvent{NewOrReformatted: linesAt(1, 2)})
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, r.Len())
}

func TestLuaFactoryLoadTimeout(t *testing.T) {
	_, err := NewLuaFactory(`while true do end`, nil, WithCallTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrScriptTimeout)
}

func TestLuaFactoryClosed(t *testing.T) {
	f, err := NewLuaFactory(`function glyph(tag) return "x" end`, nil)
	require.NoError(t, err)
	f.Close()
	f.Close()

	_, err = f.Create(luaTag("a", marker.KindComment, ""), lineAt(0))
	assert.ErrorIs(t, err, ErrFactoryClosed)
}

func TestLuaFactoryInReconciler(t *testing.T) {
	f, err := NewLuaFactory(testScript, nil)
	require.NoError(t, err)
	defer f.Close()

	reg := Registry{}
	reg.Register(TagKindFor(marker.KindComment), MarkerOrder, f)
	src := mapSource{
		1: {luaTag("x", marker.KindComment, "explode")},
		2: {luaTag("y", marker.KindComment, "")},
	}
	r, _ := newTestReconciler(reg, src)
	st := r.Reconcile(LayoutEvent{NewOrReformatted: linesAt(1, 2)})
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, r.Len())
}
