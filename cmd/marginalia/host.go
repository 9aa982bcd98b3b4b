package main

import (
	"math"

	"github.com/dshills/marginalia/internal/app"
	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

const (
	minZoom = 0.5
	maxZoom = 4
)

// fileHost is a read-mostly text view over one file. It lays out one row
// per line at zoom 1 and issues a fresh line id whenever a line's content
// is replaced.
type fileHost struct {
	snap   *tracking.Snapshot
	lines  tracking.Lines
	ids    []glyph.LineID
	nextID glyph.LineID

	rect   core.ScreenRect
	offset float64
	scale  float64

	// shown is the previous layout, by id.
	shown map[glyph.LineID]bool
}

var _ app.Host = (*fileHost)(nil)

func newFileHost(lines tracking.Lines) *fileHost {
	if len(lines) == 0 {
		lines = tracking.Lines{""}
	}
	h := &fileHost{
		snap:  tracking.NewSnapshot(lines),
		lines: lines,
		scale: 1,
		shown: make(map[glyph.LineID]bool),
	}
	h.ids = make([]glyph.LineID, len(lines))
	for i := range h.ids {
		h.ids[i] = h.newID()
	}
	return h
}

func (h *fileHost) newID() glyph.LineID {
	h.nextID++
	return h.nextID
}

func (h *fileHost) Snapshot() *tracking.Snapshot { return h.snap }

func (h *fileHost) Viewport() (float64, float64) { return h.offset, h.scale }

// VisibleLines returns the lines with at least one row on screen.
func (h *fileHost) VisibleLines() []glyph.Line {
	rows := float64(h.rect.Height())
	first := int(math.Floor(h.offset / h.scale))
	last := int(math.Ceil((h.offset + rows) / h.scale))
	if first < 0 {
		first = 0
	}
	if last > len(h.lines) {
		last = len(h.lines)
	}
	var out []glyph.Line
	for n := first; n < last; n++ {
		out = append(out, glyph.Line{ID: h.ids[n], Number: n, Top: float64(n), Height: 1})
	}
	return out
}

// BufferPositionToY spreads the whole buffer over the track height.
func (h *fileHost) BufferPositionToY(line int) (float64, bool) {
	if line < 0 || line >= len(h.lines) {
		return 0, false
	}
	return float64(line) / float64(len(h.lines)) * float64(h.rect.Height()), true
}

// Layout diffs the visible lines against the previous layout.
func (h *fileHost) Layout() glyph.LayoutEvent {
	var ev glyph.LayoutEvent
	next := make(map[glyph.LineID]bool)
	for _, l := range h.VisibleLines() {
		next[l.ID] = true
		if h.shown[l.ID] {
			ev.Translated = append(ev.Translated, l)
		} else {
			ev.NewOrReformatted = append(ev.NewOrReformatted, l)
		}
	}
	h.shown = next
	return ev
}

// ScrollBy moves the view by rows, clamped to the buffer.
func (h *fileHost) ScrollBy(rows float64) {
	maxOffset := math.Max(0, float64(len(h.lines))*h.scale-float64(h.rect.Height()))
	h.offset = math.Min(math.Max(0, h.offset+rows), maxOffset)
}

// ZoomBy multiplies the zoom scale by factor.
func (h *fileHost) ZoomBy(factor float64) {
	h.scale = math.Min(math.Max(h.scale*factor, minZoom), maxZoom)
	h.ScrollBy(0)
}

// InsertLine inserts text as a new line before line n.
func (h *fileHost) InsertLine(n int, text string) error {
	lines := make(tracking.Lines, 0, len(h.lines)+1)
	lines = append(lines, h.lines[:n]...)
	lines = append(lines, text)
	lines = append(lines, h.lines[n:]...)

	snap, err := h.snap.Apply(lines, tracking.InsertLines(n, 1))
	if err != nil {
		return err
	}
	ids := make([]glyph.LineID, 0, len(h.ids)+1)
	ids = append(ids, h.ids[:n]...)
	ids = append(ids, h.newID())
	ids = append(ids, h.ids[n:]...)

	h.snap, h.lines, h.ids = snap, lines, ids
	return nil
}

// Draw paints the visible text into the host's rectangle.
func (h *fileHost) Draw(b backend.Backend) {
	b.Fill(h.rect, core.EmptyCell())
	style := core.DefaultStyle()
	for _, l := range h.VisibleLines() {
		row := h.rect.Top + int(math.Floor(l.Top*h.scale-h.offset))
		if row < h.rect.Top || row >= h.rect.Bottom {
			continue
		}
		col := h.rect.Left
		for _, r := range h.lines[l.Number] {
			w := core.RuneWidth(r)
			if col+w > h.rect.Right {
				break
			}
			b.SetCell(col, row, core.NewStyledCell(r, style))
			col += w
		}
	}
}
