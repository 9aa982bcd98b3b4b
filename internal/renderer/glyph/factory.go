package glyph

import (
	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/theme"
)

// Factory creates the element for one tag on one line.
type Factory interface {
	Create(tag Tag, line Line) (*Element, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(tag Tag, line Line) (*Element, error)

// Create implements Factory.
func (f FactoryFunc) Create(tag Tag, line Line) (*Element, error) {
	return f(tag, line)
}

// Registration binds a factory to its ordering key. Tags whose factories
// share an ordering key compete for one icon per line; different keys
// coexist, drawn in ascending order.
type Registration struct {
	Order   int
	Factory Factory
}

// Registry is the tag kind → factory dispatch table. It is built once at
// startup and handed to the Reconciler.
type Registry map[TagKind]Registration

// Register adds or replaces the factory for kind.
func (r Registry) Register(kind TagKind, order int, f Factory) {
	r[kind] = Registration{Order: order, Factory: f}
}

// MarkerOrder is the ordering key shared by all review marker kinds.
const MarkerOrder = 0

// TagKindFor returns the tag kind used for markers of kind k.
func TagKindFor(k marker.Kind) TagKind {
	return TagKind("marker." + k.String())
}

// DefaultGlyphs are the built-in glyphs per marker kind.
var DefaultGlyphs = map[marker.Kind]string{
	marker.KindComment:    "●",
	marker.KindSuggestion: "◆",
	marker.KindQuestion:   "?",
	marker.KindResolved:   "✓",
}

// StaticFactory draws text in the marker's theme color.
func StaticFactory(text string, colors theme.Provider) Factory {
	return FactoryFunc(func(tag Tag, _ Line) (*Element, error) {
		fg := theme.MarkerColor(colors, tag.Marker.Color, tag.Marker.Kind)
		style := core.NewStyle(fg)
		if tag.Marker.Kind != marker.KindResolved {
			style = style.Bold()
		}
		return &Element{Text: text, Style: style, Tag: tag}, nil
	})
}

// DefaultRegistry registers a StaticFactory for every marker kind, all
// under MarkerOrder. glyphs overrides DefaultGlyphs per kind.
func DefaultRegistry(colors theme.Provider, glyphs map[marker.Kind]string) Registry {
	r := make(Registry)
	for _, k := range marker.Kinds() {
		text := DefaultGlyphs[k]
		if g, ok := glyphs[k]; ok && g != "" {
			text = g
		}
		r.Register(TagKindFor(k), MarkerOrder, StaticFactory(text, colors))
	}
	return r
}

// MarkerTags exposes a marker projection as a TagSource.
type MarkerTags struct {
	Projection *marker.Projection
}

// TagsOnLine implements TagSource.
func (m MarkerTags) TagsOnLine(line int) []Tag {
	if m.Projection == nil {
		return nil
	}
	markers := m.Projection.At(line)
	if len(markers) == 0 {
		return nil
	}
	tags := make([]Tag, len(markers))
	for i, mk := range markers {
		tags[i] = Tag{Kind: TagKindFor(mk.Kind), Marker: mk}
	}
	return tags
}
