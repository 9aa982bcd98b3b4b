package marker

import (
	"sort"
	"sync"

	"github.com/dshills/marginalia/internal/engine/tracking"
)

// Set is an immutable list of markers recorded against one snapshot.
// Every marker change replaces the whole set.
type Set struct {
	snapshot *tracking.Snapshot
	markers  []Marker

	mu    sync.Mutex
	cache *Projection
}

// NewSet builds a set from markers whose anchor lines refer to snap.
// Markers that fail validation are left out and reported through the
// returned errors; the set itself is always usable.
func NewSet(snap *tracking.Snapshot, markers []Marker) (*Set, []error) {
	var errs []error
	kept := make([]Marker, 0, len(markers))
	for i, m := range markers {
		if err := m.Validate(); err != nil {
			errs = append(errs, &RecordError{Index: i, ID: m.ID, Err: err})
			continue
		}
		kept = append(kept, m)
	}
	return &Set{snapshot: snap, markers: kept}, errs
}

// Snapshot returns the snapshot the anchors refer to.
func (s *Set) Snapshot() *tracking.Snapshot {
	if s == nil {
		return nil
	}
	return s.snapshot
}

// Len returns the number of markers.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.markers)
}

// Markers returns a copy of the markers in source order.
func (s *Set) Markers() []Marker {
	if s == nil {
		return nil
	}
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Project carries the set forward to snap. The most recent projection is
// cached, so repeated calls for the same snapshot are free.
func (s *Set) Project(snap *tracking.Snapshot) *Projection {
	if s == nil {
		return &Projection{byLine: map[int][]Marker{}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && s.cache.snapshot == snap {
		return s.cache
	}
	p := project(s, snap)
	s.cache = p
	return p
}

// Projection is a set of markers placed on the lines of one snapshot.
type Projection struct {
	snapshot *tracking.Snapshot
	byLine   map[int][]Marker
	lines    []int
	dropped  int
}

func project(s *Set, snap *tracking.Snapshot) *Projection {
	p := &Projection{snapshot: snap, byLine: make(map[int][]Marker)}
	for _, m := range s.markers {
		pt, ok := tracking.Translate(m.AnchorLine, s.snapshot, snap)
		if !ok {
			p.dropped++
			continue
		}
		if _, seen := p.byLine[pt.Line]; !seen {
			p.lines = append(p.lines, pt.Line)
		}
		p.byLine[pt.Line] = append(p.byLine[pt.Line], m)
	}
	sort.Ints(p.lines)
	return p
}

// Snapshot returns the snapshot the projection was computed for.
func (p *Projection) Snapshot() *tracking.Snapshot {
	return p.snapshot
}

// At returns the markers on line in source order.
func (p *Projection) At(line int) []Marker {
	return p.byLine[line]
}

// Lines returns the lines holding at least one marker, ascending.
func (p *Projection) Lines() []int {
	out := make([]int, len(p.lines))
	copy(out, p.lines)
	return out
}

// Dropped returns how many markers could not be carried forward because
// their anchor line was deleted or was never valid.
func (p *Projection) Dropped() int {
	return p.dropped
}
