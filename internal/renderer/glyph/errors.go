package glyph

import "errors"

var (
	// ErrFactoryPanic indicates a factory panicked while creating an element.
	ErrFactoryPanic = errors.New("glyph factory panicked")

	// ErrNilElement indicates a factory returned neither an element nor an error.
	ErrNilElement = errors.New("glyph factory returned no element")

	// ErrNoGlyphFunc indicates a Lua script that does not define glyph().
	ErrNoGlyphFunc = errors.New("lua script does not define glyph()")

	// ErrBadLuaResult indicates glyph() returned an unusable value.
	ErrBadLuaResult = errors.New("lua glyph() returned an unusable value")

	// ErrScriptTimeout indicates a Lua call ran past its time limit.
	ErrScriptTimeout = errors.New("lua script timed out")

	// ErrFactoryClosed indicates a call on a closed factory.
	ErrFactoryClosed = errors.New("glyph factory closed")
)
