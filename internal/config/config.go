// Package config loads and validates overlay configuration.
//
// Files are TOML or YAML, chosen by extension. Every setting has a
// default, so a missing file or a partial file is valid:
//
//	visible = true
//
//	[margin]
//	width = 3
//
//	[glyphs.symbols]
//	question = "?"
//
// A Watcher reloads the file when it changes on disk.
package config

import (
	"errors"
	"fmt"

	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/theme"
)

// Config is the complete overlay configuration.
type Config struct {
	Log LogConfig `toml:"log" yaml:"log"`

	// Visible is the initial auto-hide preference.
	Visible bool `toml:"visible" yaml:"visible"`

	Margin    MarginConfig    `toml:"margin" yaml:"margin"`
	Scrollbar ScrollbarConfig `toml:"scrollbar" yaml:"scrollbar"`
	Search    SearchConfig    `toml:"search" yaml:"search"`
	Theme     ThemeConfig     `toml:"theme" yaml:"theme"`
	Glyphs    GlyphConfig     `toml:"glyphs" yaml:"glyphs"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Format is auto, console or json. Auto picks console on a terminal.
	Format string `toml:"format" yaml:"format"`
}

// MarginConfig configures the inline glyph margin.
type MarginConfig struct {
	Width     int  `toml:"width" yaml:"width"`
	Separator bool `toml:"separator" yaml:"separator"`
}

// ScrollbarConfig configures the scrollbar indicator.
type ScrollbarConfig struct {
	Width     int     `toml:"width" yaml:"width"`
	Thickness float64 `toml:"thickness" yaml:"thickness"`
}

// SearchConfig configures the background placement search.
type SearchConfig struct {
	// Cap is the largest number of matches the scrollbar draws.
	Cap int `toml:"cap" yaml:"cap"`
}

// ThemeConfig holds color overrides, name to hex.
type ThemeConfig struct {
	Colors map[string]string `toml:"colors" yaml:"colors"`
}

// GlyphConfig selects the glyph drawn per marker kind.
type GlyphConfig struct {
	// Symbols maps a marker kind name to its glyph text.
	Symbols map[string]string `toml:"symbols" yaml:"symbols"`
	// Script is a Lua file defining a glyph(tag) function. Relative paths
	// are resolved against the config file's directory.
	Script string `toml:"script" yaml:"script"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", Format: "auto"},
		Visible:   true,
		Margin:    MarginConfig{Width: 3, Separator: true},
		Scrollbar: ScrollbarConfig{Width: 1, Thickness: 0.5},
		Search:    SearchConfig{Cap: 500},
	}
}

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	logFormats = map[string]bool{"auto": true, "console": true, "json": true}
)

// Validate reports every invalid setting, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(field, msg string, v any) {
		errs = append(errs, &ValidationError{Field: field, Message: msg, Value: v})
	}

	if !logLevels[c.Log.Level] {
		add("log.level", "unknown level", c.Log.Level)
	}
	if !logFormats[c.Log.Format] {
		add("log.format", "must be auto, console or json", c.Log.Format)
	}
	if c.Margin.Width < 1 || c.Margin.Width > 16 {
		add("margin.width", "must be between 1 and 16", c.Margin.Width)
	}
	if c.Scrollbar.Width < 1 || c.Scrollbar.Width > 4 {
		add("scrollbar.width", "must be between 1 and 4", c.Scrollbar.Width)
	}
	if c.Scrollbar.Thickness <= 0 {
		add("scrollbar.thickness", "must be positive", c.Scrollbar.Thickness)
	}
	if c.Search.Cap < 1 {
		add("search.cap", "must be at least 1", c.Search.Cap)
	}
	for name, hex := range c.Theme.Colors {
		if _, err := theme.ParseHex(hex); err != nil {
			add("theme.colors."+name, "invalid color", hex)
		}
	}
	for kind := range c.Glyphs.Symbols {
		if _, err := marker.ParseKind(kind); err != nil {
			add("glyphs.symbols."+kind, "unknown marker kind", kind)
		}
	}
	return errors.Join(errs...)
}

// Symbols returns the glyph overrides keyed by marker kind. Unknown kinds
// are skipped; Validate reports them.
func (c Config) Symbols() map[marker.Kind]string {
	out := make(map[marker.Kind]string, len(c.Glyphs.Symbols))
	for name, text := range c.Glyphs.Symbols {
		k, err := marker.ParseKind(name)
		if err != nil {
			continue
		}
		out[k] = text
	}
	return out
}

// String returns a short summary for logging.
func (c Config) String() string {
	return fmt.Sprintf("visible=%t margin=%d scrollbar=%d cap=%d colors=%d symbols=%d script=%q",
		c.Visible, c.Margin.Width, c.Scrollbar.Width, c.Search.Cap,
		len(c.Theme.Colors), len(c.Glyphs.Symbols), c.Glyphs.Script)
}
