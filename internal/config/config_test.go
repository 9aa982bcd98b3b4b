package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/marker"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.toml", FormatTOML, false},
		{"a.TOML", FormatTOML, false},
		{"a.yaml", FormatYAML, false},
		{"a.yml", FormatYAML, false},
		{"a.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFor(tt.path)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marginalia.toml", `
visible = false

[log]
level = "debug"

[margin]
width = 4

[theme.colors]
"marker.red" = "#ff0000"

[glyphs]
script = "glyphs.lua"

[glyphs.symbols]
question = "Q"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Visible)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Margin.Width)
	assert.True(t, cfg.Margin.Separator)
	assert.Equal(t, 500, cfg.Search.Cap)
	assert.Equal(t, "#ff0000", cfg.Theme.Colors["marker.red"])
	assert.Equal(t, filepath.Join(dir, "glyphs.lua"), cfg.Glyphs.Script)
	assert.Equal(t, map[marker.Kind]string{marker.KindQuestion: "Q"}, cfg.Symbols())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "marginalia.yaml", `
scrollbar:
  width: 2
  thickness: 1.5
search:
  cap: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scrollbar.Width)
	assert.InDelta(t, 1.5, cfg.Scrollbar.Thickness, 1e-9)
	assert.Equal(t, 100, cfg.Search.Cap)
	assert.True(t, cfg.Visible)
}

func TestLoadParseError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.toml", "[margin\nwidth = 3\n")

	_, err := Load(path)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Positive(t, perr.Line)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Margin.Width = 0
	cfg.Scrollbar.Thickness = 0
	cfg.Search.Cap = 0
	cfg.Theme.Colors = map[string]string{"marker.red": "red"}
	cfg.Glyphs.Symbols = map[string]string{"nit": "n"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	for _, field := range []string{"log.level", "margin.width", "scrollbar.thickness", "search.cap", "theme.colors.marker.red", "glyphs.symbols.nit"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yml", "margin:\n  width: 99\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel: "WARN",
		EnvVisible:  "false",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(&cfg, lookup))
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.False(t, cfg.Visible)

	env[EnvVisible] = "maybe"
	assert.ErrorIs(t, ApplyEnv(&cfg, lookup), ErrValidationFailed)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marginalia.toml", "[margin]\nwidth = 3\n")

	var mu sync.Mutex
	var got []Config
	var errs []error
	w, err := NewWatcher(path, func(cfg Config) {
		mu.Lock()
		got = append(got, cfg)
		mu.Unlock()
	}, WatcherOptions{OnError: func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}})
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "marginalia.toml", "[margin]\nwidth = 5\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].Margin.Width == 5
	}, 5*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "other.toml", "[margin\n")
	writeFile(t, dir, "marginalia.toml", "[margin]\nwidth = 0\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Reload(), ErrWatcherClosed)
}
