package placement

import (
	"time"

	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/marker"
)

// DefaultCap is the default maximum number of matches rendered.
const DefaultCap = 500

// Match is one marker-bearing line.
type Match struct {
	Line  int
	Color marker.Color
	Kind  marker.Kind
	// Count is the number of markers on the line.
	Count int
}

// Result is the immutable output of a completed search.
type Result struct {
	SearchID string
	Snapshot *tracking.Snapshot
	Version  tracking.Version
	// Matches are ordered by line.
	Matches  []Match
	Dropped  int
	Duration time.Duration
}

// Len returns the number of matches.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Matches)
}

// Decimate keeps limit matches spread evenly over the whole list: the
// i-th kept match is matches[i*len/limit]. When len is a multiple of limit
// this is every (len/limit)-th match starting at index 0. A non-positive
// limit or a short list is returned unchanged. The selection depends only
// on the indices.
func Decimate(matches []Match, limit int) []Match {
	if limit <= 0 || len(matches) <= limit {
		return matches
	}
	out := make([]Match, limit)
	for i := range out {
		out[i] = matches[i*len(matches)/limit]
	}
	return out
}
