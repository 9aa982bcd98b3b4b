package glyph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/theme"
)

// DefaultCallTimeout bounds each call into the script, loading included.
const DefaultCallTimeout = 50 * time.Millisecond

// LuaOption configures a LuaFactory.
type LuaOption func(*LuaFactory)

// WithCallTimeout sets the time limit of each call into the script. A
// non-positive d keeps the default.
func WithCallTimeout(d time.Duration) LuaOption {
	return func(f *LuaFactory) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// LuaFactory is a Factory backed by a Lua script defining
//
//	function glyph(tag) ... end
//
// tag carries id, kind, color, summary and line. glyph returns either the
// text to draw, or a table with text and optional color (a theme name or
// "#RRGGBB"), offset and bold fields.
//
// The Lua state is not goroutine-safe; calls are serialized. A call that
// runs past the time limit fails with ErrScriptTimeout.
type LuaFactory struct {
	mu      sync.Mutex
	L       *lua.LState
	colors  theme.Provider
	timeout time.Duration
	closed  bool
}

// NewLuaFactory loads script into a fresh state with only the base, table,
// string and math libraries opened.
func NewLuaFactory(script string, colors theme.Provider, opts ...LuaOption) (*LuaFactory, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	f := &LuaFactory{L: L, colors: colors, timeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.bounded(func() error { return L.DoString(script) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("load glyph script: %w", err)
	}
	if L.GetGlobal("glyph").Type() != lua.LTFunction {
		L.Close()
		return nil, ErrNoGlyphFunc
	}
	return f, nil
}

// bounded runs call with the state tied to a deadline. The stack is
// restored when call fails.
func (f *LuaFactory) bounded(call func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	top := f.L.GetTop()
	f.L.SetContext(ctx)
	err := call()
	f.L.RemoveContext()
	if err == nil {
		return nil
	}
	f.L.SetTop(top)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w after %s: %w", ErrScriptTimeout, f.timeout, ctxErr)
	}
	return err
}

// Create implements Factory.
func (f *LuaFactory) Create(tag Tag, line Line) (*Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFactoryClosed
	}

	arg := f.L.NewTable()
	arg.RawSetString("id", lua.LString(tag.Marker.ID))
	arg.RawSetString("kind", lua.LString(tag.Marker.Kind.String()))
	arg.RawSetString("color", lua.LString(tag.Marker.Color.String()))
	arg.RawSetString("summary", lua.LString(tag.Marker.Summary))
	arg.RawSetString("line", lua.LNumber(line.Number))

	err := f.bounded(func() error {
		return f.L.CallByParam(lua.P{
			Fn:      f.L.GetGlobal("glyph"),
			NRet:    1,
			Protect: true,
		}, arg)
	})
	if err != nil {
		return nil, fmt.Errorf("lua glyph(): %w", err)
	}
	ret := f.L.Get(-1)
	f.L.Pop(1)

	el := &Element{
		Tag:   tag,
		Style: core.NewStyle(theme.MarkerColor(f.colors, tag.Marker.Color, tag.Marker.Kind)),
	}

	switch v := ret.(type) {
	case lua.LString:
		el.Text = string(v)
	case *lua.LTable:
		el.Text = lua.LVAsString(v.RawGetString("text"))
		if c := lua.LVAsString(v.RawGetString("color")); c != "" {
			fg, err := f.resolveColor(c)
			if err != nil {
				return nil, err
			}
			el.Style.Foreground = fg
		}
		el.Offset = float64(lua.LVAsNumber(v.RawGetString("offset")))
		if lua.LVAsBool(v.RawGetString("bold")) {
			el.Style = el.Style.Bold()
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadLuaResult, ret.Type())
	}

	if el.Text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrBadLuaResult)
	}
	return el, nil
}

func (f *LuaFactory) resolveColor(c string) (core.Color, error) {
	if strings.HasPrefix(c, "#") {
		return theme.ParseHex(c)
	}
	return theme.Resolve(f.colors, c), nil
}

// Close releases the Lua state. Later calls to Create fail.
func (f *LuaFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		f.L.Close()
	}
}
