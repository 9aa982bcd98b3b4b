package event

import "strings"

// Topic is a hierarchical, dot-separated event name.
type Topic string

const (
	wildcardSingle = "*"
	wildcardMulti  = "**"
)

// Segments splits the topic at dots.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), ".")
}

// IsWildcard reports whether t contains a wildcard segment.
func (t Topic) IsWildcard() bool {
	for _, s := range t.Segments() {
		if s == wildcardSingle || s == wildcardMulti {
			return true
		}
	}
	return false
}

// Validate reports whether t is usable as a subscription pattern.
// A "**" segment is only allowed at the end.
func (t Topic) Validate() error {
	segs := t.Segments()
	if len(segs) == 0 {
		return ErrInvalidTopic
	}
	for i, s := range segs {
		if s == "" {
			return ErrInvalidTopic
		}
		if s == wildcardMulti && i != len(segs)-1 {
			return ErrInvalidTopic
		}
	}
	return nil
}

// Matches reports whether the concrete topic t is selected by pattern.
func (t Topic) Matches(pattern Topic) bool {
	if t == pattern {
		return true
	}
	ts, ps := t.Segments(), pattern.Segments()
	for i, p := range ps {
		if p == wildcardMulti {
			return len(ts) > i
		}
		if i >= len(ts) {
			return false
		}
		if p != wildcardSingle && p != ts[i] {
			return false
		}
	}
	return len(ts) == len(ps)
}

func (t Topic) String() string {
	return string(t)
}
