package tracking

import (
	"sync/atomic"
)

// Version identifies a snapshot within its chain. Versions increase by one
// along every link.
type Version uint64

// Text is the read-only line view a host exposes for one snapshot.
// Implementations must not change after being handed to NewSnapshot or Apply.
type Text interface {
	// LineCount returns the number of lines.
	LineCount() int

	// LineText returns the text of a line without its terminator.
	LineText(line int) string
}

// Lines is a Text backed by a slice of lines.
type Lines []string

// LineCount implements Text.
func (l Lines) LineCount() int {
	return len(l)
}

// LineText implements Text. Out-of-range lines read as empty.
func (l Lines) LineText(line int) string {
	if line < 0 || line >= len(l) {
		return ""
	}
	return l[line]
}

// link connects a snapshot to its successor.
type link struct {
	edits []Edit
	next  *Snapshot
}

// Snapshot is an immutable point-in-time view of a buffer.
// Snapshots can be safely shared across goroutines.
type Snapshot struct {
	version Version
	text    Text

	// next is written at most once by Apply.
	next atomic.Pointer[link]
}

// NewSnapshot starts a new version chain at version 0.
func NewSnapshot(text Text) *Snapshot {
	if text == nil {
		text = Lines(nil)
	}
	return &Snapshot{text: text}
}

// Version returns the snapshot's version within its chain.
func (s *Snapshot) Version() Version {
	return s.version
}

// Text returns the snapshot's text.
func (s *Snapshot) Text() Text {
	return s.text
}

// LineCount returns the number of lines at this snapshot.
func (s *Snapshot) LineCount() int {
	return s.text.LineCount()
}

// LineText returns the text of a line at this snapshot.
func (s *Snapshot) LineText(line int) string {
	return s.text.LineText(line)
}

// Next returns the successor snapshot and the edits that produced it.
// It returns nil if the snapshot is the head of its chain.
func (s *Snapshot) Next() (*Snapshot, []Edit) {
	l := s.next.Load()
	if l == nil {
		return nil, nil
	}
	return l.next, l.edits
}

// IsHead returns true if the snapshot has no successor yet.
func (s *Snapshot) IsHead() bool {
	return s.next.Load() == nil
}

// Apply links a successor snapshot holding text, produced from s by edits.
// Edits are applied in order; each is expressed in the coordinates produced
// by the previous one. A snapshot accepts exactly one successor.
func (s *Snapshot) Apply(text Text, edits ...Edit) (*Snapshot, error) {
	if text == nil {
		return nil, ErrNilText
	}
	if len(edits) == 0 {
		return nil, ErrNoEdits
	}

	recorded := make([]Edit, len(edits))
	copy(recorded, edits)

	next := &Snapshot{version: s.version + 1, text: text}
	if !s.next.CompareAndSwap(nil, &link{edits: recorded, next: next}) {
		return nil, ErrForked
	}
	return next, nil
}

// Reaches returns true if target is s or a successor of s.
// Cost is proportional to the number of links walked.
func (s *Snapshot) Reaches(target *Snapshot) bool {
	if s == nil || target == nil || target.version < s.version {
		return false
	}
	for cur := s; cur != nil; cur, _ = cur.Next() {
		if cur == target {
			return true
		}
		if cur.version >= target.version {
			return false
		}
	}
	return false
}
