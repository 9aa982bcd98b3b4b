// Package margin provides the inline glyph margin.
// The margin is a fixed-width strip left of the text area that shows one
// icon column per ordering key for every decorated visible line.
package margin

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rivo/uniseg"
	"github.com/rs/zerolog"

	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

// ErrRenderPanic indicates a draw panicked; the previous frame was kept.
var ErrRenderPanic = errors.New("margin render panicked")

// Config holds margin configuration.
type Config struct {
	// Width is the strip width in columns, separator included.
	Width int

	// ShowSeparator draws a vertical rule in the last column.
	ShowSeparator bool

	// Background is the strip background; the default color leaves the
	// terminal background.
	Background core.Color
}

// DefaultConfig returns the default margin configuration.
func DefaultConfig() Config {
	return Config{
		Width:         3,
		ShowSeparator: true,
		Background:    core.ColorDefault,
	}
}

// Transform maps document-space offsets to screen rows:
// row = y*Scale + Translate.
type Transform struct {
	Scale     float64
	Translate float64
}

// Apply maps y to a screen row relative to the margin's top.
func (t Transform) Apply(y float64) int {
	return int(math.Floor(y*t.Scale + t.Translate))
}

// placement is where an attached element sits.
type placement struct {
	y   float64
	seq uint64
}

// Options configures a Margin.
type Options struct {
	Logger zerolog.Logger

	// OnRenderError is called when a draw fails.
	OnRenderError func(err error)
}

// Margin is the glyph.Surface the reconciler attaches elements to.
type Margin struct {
	mu sync.RWMutex

	config    Config
	opts      Options
	logger    zerolog.Logger
	rect      core.ScreenRect
	transform Transform
	visible   bool

	elements map[*glyph.Element]placement
	seq      uint64

	frame *backend.Frame
}

var _ glyph.Surface = (*Margin)(nil)

// New creates a margin with the given configuration.
func New(config Config, opts Options) *Margin {
	return &Margin{
		config:    config,
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "margin").Logger(),
		transform: Transform{Scale: 1},
		visible:   true,
		elements:  make(map[*glyph.Element]placement),
		frame:     backend.NewFrame(core.ScreenRect{}),
	}
}

// Config returns the current configuration.
func (m *Margin) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the margin configuration.
func (m *Margin) SetConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
	m.frame.Invalidate()
}

// SetRect places the strip on screen. Only the top, left and height are
// used; the width always comes from the configuration.
func (m *Margin) SetRect(rect core.ScreenRect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rect.Right = rect.Left + m.config.Width
	m.rect = rect
}

// Rect returns the strip's screen region.
func (m *Margin) Rect() core.ScreenRect {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rect
}

// Attach implements glyph.Surface.
func (m *Margin) Attach(e *glyph.Element, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.elements[e] = placement{y: y, seq: m.seq}
}

// Move implements glyph.Surface. Unknown elements are ignored.
func (m *Margin) Move(e *glyph.Element, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.elements[e]; ok {
		p.y = y
		m.elements[e] = p
	}
}

// Detach implements glyph.Surface.
func (m *Margin) Detach(e *glyph.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.elements, e)
}

// Len returns the number of attached elements.
func (m *Margin) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.elements)
}

// SetScroll sets the vertical scroll offset in screen rows.
func (m *Margin) SetScroll(offset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform.Translate = -offset
}

// SetZoom sets the document-to-screen scale.
func (m *Margin) SetZoom(scale float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scale > 0 {
		m.transform.Scale = scale
	}
}

// Transform returns the current transform.
func (m *Margin) Transform() Transform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transform
}

// SetVisible shows or hides the strip. Hidden margins draw blank.
func (m *Margin) SetVisible(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
}

// Visible reports whether the strip is shown.
func (m *Margin) Visible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visible
}

type drawItem struct {
	el  *glyph.Element
	row int
	seq uint64
}

// Draw composes the strip and commits it to b. On failure the previous
// frame stays on screen and the error is returned.
func (m *Margin) Draw(b backend.Backend) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frame.Resize(m.rect)
	defer func() {
		if r := recover(); r != nil {
			m.frame.Discard()
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
		}
		if err != nil {
			m.logger.Error().Err(err).Msg("margin draw failed")
			if m.opts.OnRenderError != nil {
				m.opts.OnRenderError(err)
			}
		}
	}()

	m.compose()
	m.frame.Commit(b)
	return nil
}

func (m *Margin) compose() {
	blank := core.Cell{Rune: ' ', Width: 1, Style: core.DefaultStyle().WithBackground(m.config.Background)}
	m.frame.Reset(blank)

	height := m.rect.Height()
	iconCols := m.config.Width
	if m.config.ShowSeparator && iconCols > 0 {
		iconCols--
		sep := core.NewStyledCell('│', core.DefaultStyle().WithBackground(m.config.Background).Dim())
		for row := 0; row < height; row++ {
			m.frame.Set(iconCols, row, sep)
		}
	}
	if !m.visible || iconCols <= 0 {
		return
	}

	items := make([]drawItem, 0, len(m.elements))
	for el, p := range m.elements {
		row := m.transform.Apply(p.y)
		if row < 0 || row >= height {
			continue
		}
		items = append(items, drawItem{el: el, row: row, seq: p.seq})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].row != items[j].row {
			return items[i].row < items[j].row
		}
		return items[i].seq < items[j].seq
	})

	col, lastRow := 0, -1
	for _, it := range items {
		if it.row != lastRow {
			col, lastRow = 0, it.row
		}
		col = m.drawText(it.el, col, it.row, iconCols)
	}
}

// drawText writes el's text starting at col and returns the next free
// column. Graphemes that would cross limit are dropped.
func (m *Margin) drawText(el *glyph.Element, col, row, limit int) int {
	style := el.Style
	if !m.config.Background.IsDefault() {
		style = style.WithBackground(m.config.Background)
	}

	g := uniseg.NewGraphemes(el.Text)
	for g.Next() {
		w := g.Width()
		if w == 0 {
			continue
		}
		if col+w > limit {
			return limit
		}
		runes := g.Runes()
		m.frame.Set(col, row, core.Cell{Rune: runes[0], Width: w, Style: style})
		for i := 1; i < w; i++ {
			m.frame.Set(col+i, row, core.Cell{Rune: 0, Width: 0, Style: style})
		}
		col += w
	}
	return col
}
