package tracking

// span is the tracked extent of an anchor. Line anchors cover the whole
// text of one line; point anchors are empty.
type span struct {
	start Point
	end   Point
	point bool
}

// Translate carries anchorLine, recorded against from, forward to the
// equivalent position in to.
//
// The anchor tracks the full text of its line. It is reported deleted
// (ok == false) once a single edit removes that text entirely. Out-of-range
// anchors and targets that are not reachable from from also yield ok ==
// false. Cost is proportional to the number of edits between the two
// snapshots.
func Translate(anchorLine int, from, to *Snapshot) (Point, bool) {
	if from == nil || to == nil {
		return Point{}, false
	}
	if anchorLine < 0 || anchorLine >= from.LineCount() {
		return Point{}, false
	}
	sp := span{
		start: Point{Line: anchorLine},
		end:   Point{Line: anchorLine, Column: len(from.LineText(anchorLine))},
	}
	return walk(sp, from, to)
}

// TranslatePoint carries an arbitrary point forward from one snapshot to
// another. The point is treated as an empty span that is only deleted when
// an edit removes text on both sides of it.
func TranslatePoint(p Point, from, to *Snapshot) (Point, bool) {
	if from == nil || to == nil || p.Line < 0 || p.Column < 0 {
		return Point{}, false
	}
	return walk(span{start: p, end: p, point: true}, from, to)
}

// walk follows the version chain from from to to, mapping sp through every
// recorded edit.
func walk(sp span, from, to *Snapshot) (Point, bool) {
	if to.version < from.version {
		return Point{}, false
	}

	cur := from
	for cur != to {
		next, edits := cur.Next()
		if next == nil || next.version > to.version {
			return Point{}, false
		}
		for _, e := range edits {
			if !e.Valid() {
				continue
			}
			var alive bool
			sp, alive = mapSpan(sp, e)
			if !alive {
				return Point{}, false
			}
		}
		cur = next
	}
	return sp.start, true
}

// mapSpan carries sp across e and reports whether any of its text survived.
func mapSpan(sp span, e Edit) (span, bool) {
	if e.Start.Before(e.OldEnd) {
		if sp.point {
			if e.Start.Before(sp.start) && sp.start.Before(e.OldEnd) {
				return span{}, false
			}
		} else if !sp.start.Before(e.Start) && !e.OldEnd.Before(sp.end) {
			return span{}, false
		}
	}

	if sp.point {
		p := mapPoint(sp.start, e, true)
		return span{start: p, end: p, point: true}, true
	}

	start := mapPoint(sp.start, e, false)
	end := mapPoint(sp.end, e, true)
	if end.Before(start) {
		end = start
	}
	return span{start: start, end: end}, true
}
