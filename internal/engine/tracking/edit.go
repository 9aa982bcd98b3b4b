package tracking

import (
	"fmt"
	"strings"
)

// Point is a line and column position. Both are 0-indexed and the column is
// measured in bytes from the start of the line.
type Point struct {
	Line   int
	Column int
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line < other.Line {
		return -1
	}
	if p.Line > other.Line {
		return 1
	}
	if p.Column < other.Column {
		return -1
	}
	if p.Column > other.Column {
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// EditKind categorizes an edit.
type EditKind uint8

const (
	// EditInsert indicates text was inserted and nothing removed.
	EditInsert EditKind = iota

	// EditDelete indicates text was removed and nothing inserted.
	EditDelete

	// EditReplace indicates text was both removed and inserted.
	EditReplace

	// EditNone indicates an empty edit.
	EditNone
)

// String returns a human-readable representation of the edit kind.
func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	case EditReplace:
		return "replace"
	case EditNone:
		return "none"
	default:
		return "unknown"
	}
}

// Edit describes a single replacement in point coordinates.
//
// The range [Start, OldEnd) in the old text was replaced by text spanning
// [Start, NewEnd) in the new text.
type Edit struct {
	Start  Point
	OldEnd Point
	NewEnd Point
}

// EditFromText builds the edit that replaces [start, oldEnd) with newText.
func EditFromText(start, oldEnd Point, newText string) Edit {
	newEnd := start
	if n := strings.Count(newText, "\n"); n > 0 {
		newEnd.Line += n
		newEnd.Column = len(newText) - strings.LastIndexByte(newText, '\n') - 1
	} else {
		newEnd.Column += len(newText)
	}
	return Edit{Start: start, OldEnd: oldEnd, NewEnd: newEnd}
}

// InsertLines builds the edit that inserts count whole lines before line.
func InsertLines(line, count int) Edit {
	start := Point{Line: line}
	return Edit{Start: start, OldEnd: start, NewEnd: Point{Line: line + count}}
}

// DeleteLines builds the edit that removes count whole lines starting at line.
func DeleteLines(line, count int) Edit {
	start := Point{Line: line}
	return Edit{Start: start, OldEnd: Point{Line: line + count}, NewEnd: start}
}

// Kind reports whether the edit inserted, deleted or replaced text.
func (e Edit) Kind() EditKind {
	removed := e.Start.Before(e.OldEnd)
	inserted := e.Start.Before(e.NewEnd)
	switch {
	case removed && inserted:
		return EditReplace
	case removed:
		return EditDelete
	case inserted:
		return EditInsert
	default:
		return EditNone
	}
}

// LineDelta returns how many lines the edit added (negative if removed).
func (e Edit) LineDelta() int {
	return e.NewEnd.Line - e.OldEnd.Line
}

// Valid reports whether the edit's points are ordered.
func (e Edit) Valid() bool {
	return e.Start.Line >= 0 && e.Start.Column >= 0 &&
		!e.OldEnd.Before(e.Start) && !e.NewEnd.Before(e.Start)
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	return fmt.Sprintf("%s %v-%v -> %v", e.Kind(), e.Start, e.OldEnd, e.NewEnd)
}

// mapPoint carries p across e.
//
// Points before the edit are unchanged and points at or after OldEnd shift
// by the edit's extent. A point inside the removed range has no exact
// successor; it is clamped to NewEnd when stickEnd is false (a span start)
// and to Start otherwise (a span end). An insertion exactly at p pushes p
// forward unless stickEnd is set.
func mapPoint(p Point, e Edit, stickEnd bool) Point {
	if p.Before(e.Start) {
		return p
	}
	if p == e.Start && stickEnd {
		return p
	}
	if p.Before(e.OldEnd) {
		if stickEnd {
			return e.Start
		}
		return e.NewEnd
	}
	if p.Line == e.OldEnd.Line {
		return Point{Line: e.NewEnd.Line, Column: e.NewEnd.Column + (p.Column - e.OldEnd.Column)}
	}
	return Point{Line: p.Line + e.LineDelta(), Column: p.Column}
}
