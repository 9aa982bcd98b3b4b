// Package glyph keeps inline per-line decorations in sync with the lines a
// view currently lays out.
//
// The host reports layout changes as a LayoutEvent: lines whose content or
// formatting changed, and lines that only moved vertically. The Reconciler
// builds icons for the former through factories looked up in an explicit
// Registry, repositions the icons of the latter, and detaches everything
// belonging to lines that are no longer visible. Work is proportional to
// the size of the event, not to the number of markers or document length.
//
// A Reconciler is owned by a single goroutine and is not safe for
// concurrent use.
package glyph
