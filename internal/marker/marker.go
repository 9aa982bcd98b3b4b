package marker

import "fmt"

// Color is the review color a marker is drawn with.
type Color uint8

const (
	ColorDefault Color = iota
	ColorRed
	ColorOrange
	ColorYellow
	ColorGreen
	ColorBlue
	ColorPurple
	ColorGray
)

var colorNames = [...]string{
	ColorDefault: "default",
	ColorRed:     "red",
	ColorOrange:  "orange",
	ColorYellow:  "yellow",
	ColorGreen:   "green",
	ColorBlue:    "blue",
	ColorPurple:  "purple",
	ColorGray:    "gray",
}

// String returns the color's short name.
func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "unknown"
}

// ThemeKey returns the name the theme provider resolves for this color.
func (c Color) ThemeKey() string {
	return "marker." + c.String()
}

// ParseColor parses a color name. The empty string maps to ColorDefault.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return ColorDefault, nil
	}
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return ColorDefault, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// Kind categorizes a marker.
type Kind uint8

const (
	KindComment Kind = iota
	KindSuggestion
	KindQuestion
	KindResolved
)

var kindNames = [...]string{
	KindComment:    "comment",
	KindSuggestion: "suggestion",
	KindQuestion:   "question",
	KindResolved:   "resolved",
}

// String returns the kind's name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind parses a kind name. The empty string maps to KindComment.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindComment, nil
	}
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindComment, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{KindComment, KindSuggestion, KindQuestion, KindResolved}
}

// Marker is a review comment anchored to a source line.
// Markers are values; the engine never mutates one in place.
type Marker struct {
	ID         string
	AnchorLine int
	Color      Color
	Kind       Kind
	Summary    string
}

// Validate reports why a marker cannot be placed, if at all.
func (m Marker) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.AnchorLine < 0 {
		return ErrInvalidLine
	}
	return nil
}

// String returns a human-readable representation of the marker.
func (m Marker) String() string {
	return fmt.Sprintf("%s@%d(%s,%s)", m.ID, m.AnchorLine, m.Kind, m.Color)
}
