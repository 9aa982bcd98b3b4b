package glyph

import (
	"fmt"

	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/core"
)

// LineID identifies a laid-out line across re-layouts. The host keeps it
// stable while a line scrolls or is re-measured and issues a new one when
// the line's content is replaced.
type LineID uint64

// Line is one laid-out line.
type Line struct {
	ID LineID

	// Number is the buffer line at the current snapshot.
	Number int

	// Top is the vertical offset of the line in document space, in rows
	// at zoom 1.
	Top float64

	// Height is the line height in the same units.
	Height float64
}

// String returns a human-readable representation of the line.
func (l Line) String() string {
	return fmt.Sprintf("line %d (id %d) @%.1f", l.Number, l.ID, l.Top)
}

// LayoutEvent describes one host layout pass.
type LayoutEvent struct {
	// NewOrReformatted lines must have their icons rebuilt.
	NewOrReformatted []Line

	// Translated lines only moved; their icons are repositioned.
	Translated []Line
}

// Size returns the number of lines in the event.
func (e LayoutEvent) Size() int {
	return len(e.NewOrReformatted) + len(e.Translated)
}

// TagKind selects the factory used for a tag.
type TagKind string

// Tag is a decoration request on a line.
type Tag struct {
	Kind   TagKind
	Marker marker.Marker
}

// TagSource answers which tags intersect a buffer line.
type TagSource interface {
	TagsOnLine(line int) []Tag
}

// Element is a drawable decoration created by a factory. Surfaces track
// elements by pointer identity.
type Element struct {
	// Text is the glyph drawn in the margin, usually one grapheme.
	Text string

	// Style is the style the glyph is drawn with.
	Style core.Style

	// Offset is the element's offset from the top of its line.
	Offset float64

	// Tag is the tag the element was created for.
	Tag Tag
}

// Icon is one element on a line.
type Icon struct {
	Order      int
	Element    *Element
	BaseOffset float64
}

// LineVisual is the set of icons owned by one line identity.
type LineVisual struct {
	ID    LineID
	Line  Line
	Icons []Icon
}

// Surface is where elements are attached. Positions are in document space.
type Surface interface {
	Attach(e *Element, y float64)
	Move(e *Element, y float64)
	Detach(e *Element)
}
