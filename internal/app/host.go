package app

import (
	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

// Host is the editor view an overlay is attached to. Its methods are
// called on the view's owner goroutine.
type Host interface {
	// Snapshot returns the buffer's current snapshot.
	Snapshot() *tracking.Snapshot

	// VisibleLines returns the lines currently laid out on screen.
	VisibleLines() []glyph.Line

	// Viewport returns the current vertical scroll offset and zoom scale.
	Viewport() (offset, scale float64)

	// BufferPositionToY maps a buffer line to a row offset on the
	// scrollbar track. ok is false for lines it cannot place.
	BufferPositionToY(line int) (y float64, ok bool)
}
