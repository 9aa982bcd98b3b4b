// Package theme resolves color names to render colors.
package theme

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/core"
)

// ErrInvalidColor indicates a palette entry that is not a hex color.
var ErrInvalidColor = errors.New("invalid color")

// FallbackColor is used for names a provider cannot resolve.
var FallbackColor = core.ColorFromRGB(0x9E, 0x9E, 0x9E)

// Provider maps color names to render colors.
type Provider interface {
	// Color returns the color registered under name.
	Color(name string) (core.Color, bool)
}

// Palette is a Provider backed by a name → color table.
// It is safe for concurrent use.
type Palette struct {
	mu         sync.RWMutex
	colors     map[string]core.Color
	background core.Color
}

// DefaultColors are the built-in marker colors as hex strings.
var DefaultColors = map[string]string{
	"marker.default": "#E0A526",
	"marker.red":     "#E5484D",
	"marker.orange":  "#F76B15",
	"marker.yellow":  "#FFE629",
	"marker.green":   "#30A46C",
	"marker.blue":    "#3E63DD",
	"marker.purple":  "#8E4EC6",
	"marker.gray":    "#8B8D98",
	"background":     "#1E1E1E",
	"scrollbar":      "#2B2B2B",
}

// NewPalette builds a palette from hex colors. Every invalid entry is
// reported; valid ones are kept.
func NewPalette(hex map[string]string) (*Palette, error) {
	p := &Palette{colors: make(map[string]core.Color, len(hex))}
	var errs []error

	names := make([]string, 0, len(hex))
	for name := range hex {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c, err := ParseHex(hex[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		p.colors[name] = c
	}
	p.background = p.colors["background"]
	if _, ok := p.colors["background"]; !ok {
		p.background = core.ColorFromRGB(0, 0, 0)
	}
	return p, errors.Join(errs...)
}

// Default returns a palette holding DefaultColors.
func Default() *Palette {
	p, _ := NewPalette(DefaultColors)
	return p
}

// Merge returns a copy of p with overrides applied on top.
func (p *Palette) Merge(overrides map[string]string) (*Palette, error) {
	p.mu.RLock()
	merged := make(map[string]string, len(p.colors)+len(overrides))
	for name, c := range p.colors {
		merged[name] = c.String()
	}
	p.mu.RUnlock()

	for name, hex := range overrides {
		merged[name] = hex
	}
	return NewPalette(merged)
}

// Color implements Provider.
func (p *Palette) Color(name string) (core.Color, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.colors[name]
	return c, ok
}

// Set registers or replaces a color.
func (p *Palette) Set(name string, c core.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.colors[name] = c
	if name == "background" {
		p.background = c
	}
}

// Background returns the palette's background color.
func (p *Palette) Background() core.Color {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.background
}

// ParseHex parses "#RGB" or "#RRGGBB".
func ParseHex(s string) (core.Color, error) {
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return core.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	r, g, b := c.RGB255()
	return core.ColorFromRGB(r, g, b), nil
}

// Resolve looks name up in p, falling back to FallbackColor.
func Resolve(p Provider, name string) core.Color {
	if p != nil {
		if c, ok := p.Color(name); ok {
			return c
		}
	}
	return FallbackColor
}

// Blend mixes a toward b by t (0..1) in Lab space.
func Blend(a, b core.Color, t float64) core.Color {
	if a.IsDefault() || b.IsDefault() {
		return a
	}
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, g, bl := ca.BlendLab(cb, t).Clamped().RGB255()
	return core.ColorFromRGB(r, g, bl)
}

// resolvedFade is how far resolved markers fade toward the background.
const resolvedFade = 0.55

// MarkerColor returns the render color for a marker. Resolved markers are
// faded toward the background when p exposes one.
func MarkerColor(p Provider, c marker.Color, k marker.Kind) core.Color {
	col := Resolve(p, c.ThemeKey())
	if k != marker.KindResolved {
		return col
	}
	bg := core.ColorFromRGB(0, 0, 0)
	if b, ok := p.(interface{ Background() core.Color }); ok {
		bg = b.Background()
	}
	return Blend(col, bg, resolvedFade)
}
