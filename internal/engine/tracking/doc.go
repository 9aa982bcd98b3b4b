// Package tracking translates buffer positions across edits.
//
// A [Snapshot] is an immutable, versioned view of host text. Each snapshot
// may be linked exactly once to a successor through [Snapshot.Apply], which
// records the edits that produced it. The resulting version chain lets a
// position recorded against an older snapshot be carried forward to a newer
// one without rescanning the text:
//
//	s0 := tracking.NewSnapshot(tracking.Lines{"a", "b", "c"})
//	s1, _ := s0.Apply(tracking.Lines{"x", "y", "a", "b", "c"},
//	    tracking.EditFromText(tracking.Point{}, tracking.Point{}, "x\ny\n"))
//
//	p, ok := tracking.Translate(1, s0, s1) // p.Line == 3, ok == true
//
// Translation is pure and never fails loudly: an anchor whose text was
// removed, an out-of-range anchor, or an unreachable target all yield ok ==
// false rather than a guessed position.
package tracking
