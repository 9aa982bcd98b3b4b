// Package scrollbar draws the marker indicator on the scrollbar track.
//
// The indicator holds no marker state of its own: every draw reads the
// latest completed placement result, decimates it, maps each match to a
// track position and draws a short tick. Ticks are drawn with half-cell
// resolution using the upper and lower half block characters.
package scrollbar

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/marginalia/internal/engine/placement"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/theme"
)

// ErrRenderPanic indicates a draw panicked; the previous frame was kept.
var ErrRenderPanic = errors.New("scrollbar render panicked")

const (
	upperHalf = '▀'
	lowerHalf = '▄'
	fullBlock = '█'
)

// Config holds scrollbar indicator configuration.
type Config struct {
	// Width is the track width in columns.
	Width int

	// Cap is the maximum number of matches drawn; see placement.Decimate.
	Cap int

	// Thickness is the tick height in rows. Ticks closer than this are
	// coalesced.
	Thickness float64
}

// DefaultConfig returns the default indicator configuration.
func DefaultConfig() Config {
	return Config{
		Width:     1,
		Cap:       placement.DefaultCap,
		Thickness: 0.5,
	}
}

// ResultSource provides the latest completed placement result.
type ResultSource interface {
	Latest() *placement.Result
}

// Mapper maps a buffer line to a track offset in rows from the track top.
// ok is false for lines the host cannot place.
type Mapper interface {
	BufferPositionToY(line int) (y float64, ok bool)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(line int) (float64, bool)

// BufferPositionToY implements Mapper.
func (f MapperFunc) BufferPositionToY(line int) (float64, bool) {
	return f(line)
}

// Tick is one drawn indicator.
type Tick struct {
	Y     float64
	Match placement.Match
}

// ComputeTicks decimates matches to limit, maps them through m and drops
// every tick closer than thickness to the previously kept one. Ticks
// exactly thickness apart touch without overlapping and are both kept.
func ComputeTicks(matches []placement.Match, limit int, thickness float64, m Mapper) []Tick {
	kept := placement.Decimate(matches, limit)
	ticks := make([]Tick, 0, len(kept))
	lastY := math.Inf(-1)
	for _, match := range kept {
		y, ok := m.BufferPositionToY(match.Line)
		if !ok {
			continue
		}
		if y-lastY < thickness {
			continue
		}
		ticks = append(ticks, Tick{Y: y, Match: match})
		lastY = y
	}
	return ticks
}

// Options configures a Scrollbar.
type Options struct {
	Logger zerolog.Logger

	// OnRenderError is called when a draw fails.
	OnRenderError func(err error)
}

// Scrollbar is the marker indicator strip.
type Scrollbar struct {
	mu sync.Mutex

	config  Config
	opts    Options
	logger  zerolog.Logger
	source  ResultSource
	mapper  Mapper
	colors  theme.Provider
	rect    core.ScreenRect
	visible bool

	drawn *placement.Result
	dirty bool
	frame *backend.Frame
}

// New creates an indicator reading results from source.
func New(config Config, source ResultSource, mapper Mapper, colors theme.Provider, opts Options) *Scrollbar {
	return &Scrollbar{
		config:  config,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "scrollbar").Logger(),
		source:  source,
		mapper:  mapper,
		colors:  colors,
		visible: true,
		dirty:   true,
		frame:   backend.NewFrame(core.ScreenRect{}),
	}
}

// SetConfig updates the configuration and forces a redraw.
func (s *Scrollbar) SetConfig(config Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	s.dirty = true
	s.frame.Invalidate()
}

// SetColors replaces the theme provider and forces a redraw.
func (s *Scrollbar) SetColors(colors theme.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors = colors
	s.dirty = true
}

// SetRect places the track on screen. The width comes from the
// configuration.
func (s *Scrollbar) SetRect(rect core.ScreenRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rect.Right = rect.Left + s.config.Width
	if rect != s.rect {
		s.rect = rect
		s.dirty = true
	}
}

// SetVisible shows or hides the indicator. Hiding keeps no extra state.
func (s *Scrollbar) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visible != visible {
		s.visible = visible
		s.dirty = true
	}
}

// Visible reports whether ticks are drawn.
func (s *Scrollbar) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Invalidate forces the next NeedsRedraw to report true, as after a
// scrollbar remap or a marker change.
func (s *Scrollbar) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// NeedsRedraw reports whether the indicator changed since the last draw.
func (s *Scrollbar) NeedsRedraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty || s.source.Latest() != s.drawn
}

// Ticks returns the ticks the next draw would produce.
func (s *Scrollbar) Ticks() []Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks(s.source.Latest())
}

func (s *Scrollbar) ticks(res *placement.Result) []Tick {
	if res == nil || s.mapper == nil {
		return nil
	}
	return ComputeTicks(res.Matches, s.config.Cap, s.config.Thickness, s.mapper)
}

// Draw composes the track and commits it to b. On failure the previous
// frame stays on screen and the error is returned.
func (s *Scrollbar) Draw(b backend.Backend) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame.Resize(s.rect)
	res := s.source.Latest()
	defer func() {
		if r := recover(); r != nil {
			s.frame.Discard()
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
			s.logger.Error().Err(err).Msg("scrollbar draw failed")
			if s.opts.OnRenderError != nil {
				s.opts.OnRenderError(err)
			}
		}
	}()

	s.compose(res)
	s.frame.Commit(b)
	s.drawn = res
	s.dirty = false
	return nil
}

func (s *Scrollbar) compose(res *placement.Result) {
	track := theme.Resolve(s.colors, "scrollbar")
	s.frame.Reset(core.Cell{Rune: ' ', Width: 1, Style: core.DefaultStyle().WithBackground(track)})
	if !s.visible {
		return
	}

	height := s.rect.Height()
	// Color of each half row, top to bottom; unset halves show the track.
	halves := make([]*core.Color, height*2)
	for _, t := range s.ticks(res) {
		sub := int(math.Floor(t.Y * 2))
		if sub < 0 || sub >= len(halves) || halves[sub] != nil {
			continue
		}
		c := theme.MarkerColor(s.colors, t.Match.Color, t.Match.Kind)
		halves[sub] = &c
	}

	for row := 0; row < height; row++ {
		top, bottom := halves[row*2], halves[row*2+1]
		var cell core.Cell
		switch {
		case top == nil && bottom == nil:
			continue
		case top != nil && bottom != nil && top.Equals(*bottom):
			cell = core.NewStyledCell(fullBlock, core.NewStyle(*top).WithBackground(track))
		case top != nil && bottom != nil:
			cell = core.NewStyledCell(upperHalf, core.NewStyle(*top).WithBackground(*bottom))
		case top != nil:
			cell = core.NewStyledCell(upperHalf, core.NewStyle(*top).WithBackground(track))
		default:
			cell = core.NewStyledCell(lowerHalf, core.NewStyle(*bottom).WithBackground(track))
		}
		for col := 0; col < s.rect.Width(); col++ {
			s.frame.Set(col, row, cell)
		}
	}
}
