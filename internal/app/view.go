package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/marginalia/internal/config"
	"github.com/dshills/marginalia/internal/engine/placement"
	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/event"
	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
	"github.com/dshills/marginalia/internal/renderer/glyph"
	"github.com/dshills/marginalia/internal/renderer/margin"
	"github.com/dshills/marginalia/internal/renderer/scrollbar"
	"github.com/dshills/marginalia/internal/session"
	"github.com/dshills/marginalia/internal/theme"
)

// ViewOptions configures a View.
type ViewOptions struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *Metrics

	// Bus, when set, delivers host notifications under the marginalia.*
	// topics.
	Bus *event.Bus

	// Loop is the owner loop. A new one is created when nil.
	Loop *Loop

	// OnRedraw is called on the owner goroutine whenever a surface needs
	// drawing.
	OnRedraw func()
}

// View is the overlay engine of one editor view: the session gate, the
// line glyph reconciler with its margin, and the placement search with its
// scrollbar indicator.
//
// Except for Loop().Post, every method must be called on the owner
// goroutine, the one driving Loop().
type View struct {
	id      string
	host    Host
	loop    *Loop
	bus     *event.Bus
	logger  zerolog.Logger
	metrics *Metrics

	gate       *session.Gate
	reconciler *glyph.Reconciler
	margin     *margin.Margin
	scrollbar  *scrollbar.Scrollbar
	search     *placement.Coordinator

	cfg     config.Config
	palette *theme.Palette
	lua     *glyph.LuaFactory
	area    core.ScreenRect

	markers     *marker.Set
	projected   *tracking.Snapshot
	base        event.Set
	active      event.Set
	activations int
	dirty       bool
	disposed    bool

	onRedraw  func()
	onDispose func(*View)
}

// NewView creates a view over host in session.StateUninitialized.
func NewView(host Host, opts ViewOptions) (*View, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &View{
		id:       uuid.NewString(),
		host:     host,
		loop:     opts.Loop,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		cfg:      cfg,
		onRedraw: opts.OnRedraw,
	}
	if v.loop == nil {
		v.loop = NewLoop()
	}
	v.logger = opts.Logger.With().Str("view", v.id).Logger()

	palette, err := theme.Default().Merge(cfg.Theme.Colors)
	if err != nil {
		return nil, NewComponentError("theme", "load colors", err)
	}
	registry, lua, err := buildRegistry(cfg, palette)
	if err != nil {
		return nil, err
	}
	v.palette = palette
	v.lua = lua

	v.margin = margin.New(marginConfig(cfg), margin.Options{
		Logger:        v.logger,
		OnRenderError: func(error) { v.metrics.RenderFailed("margin") },
	})
	v.margin.SetVisible(false)

	v.reconciler = glyph.NewReconciler(registry, v.margin, glyph.Options{
		Logger:         v.logger,
		OnFactoryError: func(kind glyph.TagKind, _ error) { v.metrics.FactoryFailed(kind) },
	})

	var observer placement.Observer
	if v.metrics != nil {
		observer = v.metrics
	}
	v.search = placement.NewCoordinator(placement.CoordinatorOptions{
		Logger:   v.logger,
		Observer: observer,
		Post:     v.loop.Post,
		OnResult: func(*placement.Result) { v.requestRedraw() },
	})

	v.scrollbar = scrollbar.New(scrollbarConfig(cfg), v.search, host, palette, scrollbar.Options{
		Logger:        v.logger,
		OnRenderError: func(error) { v.metrics.RenderFailed("scrollbar") },
	})
	v.scrollbar.SetVisible(false)

	v.gate = session.New(session.Hooks{
		Activate:   v.activate,
		Deactivate: v.deactivate,
		Dispose:    v.dispose,
	}, session.Options{Logger: v.logger, Visible: cfg.Visible})

	if err := v.subscribeBase(); err != nil {
		v.search.Dispose()
		if lua != nil {
			lua.Close()
		}
		return nil, NewComponentError("event", "subscribe", err)
	}
	v.metrics.viewOpened()
	v.logger.Debug().Stringer("config", cfg).Msg("view opened")
	return v, nil
}

func marginConfig(cfg config.Config) margin.Config {
	mc := margin.DefaultConfig()
	mc.Width = cfg.Margin.Width
	mc.ShowSeparator = cfg.Margin.Separator
	return mc
}

func scrollbarConfig(cfg config.Config) scrollbar.Config {
	return scrollbar.Config{
		Width:     cfg.Scrollbar.Width,
		Cap:       cfg.Search.Cap,
		Thickness: cfg.Scrollbar.Thickness,
	}
}

// buildRegistry creates the factory table for cfg. A glyph script, when
// configured, takes over every marker kind.
func buildRegistry(cfg config.Config, palette theme.Provider) (glyph.Registry, *glyph.LuaFactory, error) {
	registry := glyph.DefaultRegistry(palette, cfg.Symbols())
	if cfg.Glyphs.Script == "" {
		return registry, nil, nil
	}

	src, err := os.ReadFile(cfg.Glyphs.Script)
	if err != nil {
		return nil, nil, NewComponentError("glyph", "read script", err)
	}
	lua, err := glyph.NewLuaFactory(string(src), palette)
	if err != nil {
		return nil, nil, NewComponentError("glyph", "load script "+cfg.Glyphs.Script, err)
	}
	for _, k := range marker.Kinds() {
		registry.Register(glyph.TagKindFor(k), glyph.MarkerOrder, lua)
	}
	return registry, lua, nil
}

// ID returns the view's unique id.
func (v *View) ID() string { return v.id }

// Loop returns the owner loop.
func (v *View) Loop() *Loop { return v.loop }

// State returns the session gate state.
func (v *View) State() session.State { return v.gate.State() }

// Config returns the configuration in effect.
func (v *View) Config() config.Config { return v.cfg }

// Markers returns the current marker set.
func (v *View) Markers() *marker.Set { return v.markers }

// Latest returns the placement result the scrollbar draws, or nil.
func (v *View) Latest() *placement.Result { return v.search.Latest() }

// Search returns the current placement search, which may have finished.
func (v *View) Search() *placement.Search { return v.search.Current() }

// Visuals returns the current line visuals ordered by line.
func (v *View) Visuals() []glyph.LineVisual { return v.reconciler.Visuals() }

// Ticks returns the scrollbar ticks the next draw produces.
func (v *View) Ticks() []scrollbar.Tick { return v.scrollbar.Ticks() }

// Activations returns how many times the view became active.
func (v *View) Activations() int { return v.activations }

// OnSessionReady handles a session-ready signal.
func (v *View) OnSessionReady() session.State {
	return v.gate.SessionReady()
}

// OnSessionLogout handles a session logout.
func (v *View) OnSessionLogout() session.State {
	return v.gate.SessionLogout()
}

// Toggle applies the user's auto-hide preference.
func (v *View) Toggle(visible bool) session.State {
	return v.gate.Toggle(visible)
}

// OnMarkerChanged replaces the marker set wholesale.
func (v *View) OnMarkerChanged(set *marker.Set) {
	if v.disposed {
		return
	}
	v.markers = set
	if !v.isActive() {
		return
	}
	snap := v.host.Snapshot()
	v.project(snap)
	v.observeReconcile(v.reconciler.Rebuild())
	v.search.Restart(snap, set)
	v.scrollbar.Invalidate()
	v.requestRedraw()
}

// OnLayoutChanged reconciles the glyphs of the lines in ev. When the
// host's snapshot moved on since the glyphs were built, every line in ev is
// rebuilt from the markers projected onto the new snapshot and the
// placement search is restarted over it.
func (v *View) OnLayoutChanged(ev glyph.LayoutEvent) {
	if !v.isActive() {
		return
	}
	snap := v.host.Snapshot()
	v.refreshSearch(snap)
	if snap != v.projected {
		v.project(snap)
		lines := make([]glyph.Line, 0, ev.Size())
		lines = append(lines, ev.NewOrReformatted...)
		lines = append(lines, ev.Translated...)
		ev = glyph.LayoutEvent{NewOrReformatted: lines}
	}
	start := time.Now()
	stats := v.reconciler.Reconcile(ev)
	v.metrics.ObserveReconcile(time.Since(start))
	v.observeReconcile(stats)
	v.requestRedraw()
}

// OnBufferChanged restarts the placement search over the host's new
// snapshot. Glyphs follow with the next layout event.
func (v *View) OnBufferChanged() {
	if !v.isActive() {
		return
	}
	v.refreshSearch(v.host.Snapshot())
}

// OnScroll moves the margin to a new vertical scroll offset.
func (v *View) OnScroll(offset float64) {
	if v.disposed {
		return
	}
	v.margin.SetScroll(offset)
	if v.isActive() {
		v.requestRedraw()
	}
}

// OnZoom rescales the margin. The scrollbar mapping changes with it.
func (v *View) OnZoom(scale float64) {
	if v.disposed {
		return
	}
	v.margin.SetZoom(scale)
	v.scrollbar.Invalidate()
	if v.isActive() {
		v.requestRedraw()
	}
}

// SetRect lays the margin along the left edge of area and the scrollbar
// along its right edge.
func (v *View) SetRect(area core.ScreenRect) {
	v.area = area
	v.margin.SetRect(area)
	w := v.cfg.Scrollbar.Width
	v.scrollbar.SetRect(core.RectFromSize(area.Top, area.Right-w, area.Height(), w))
	v.requestRedraw()
}

// TextRect returns the part of the view's area between the two surfaces.
func (v *View) TextRect() core.ScreenRect {
	r := v.area
	r.Left += v.cfg.Margin.Width
	r.Right -= v.cfg.Scrollbar.Width
	if r.Right < r.Left {
		r.Right = r.Left
	}
	return r
}

// NeedsRedraw reports whether Draw would change the screen.
func (v *View) NeedsRedraw() bool {
	return v.dirty || v.scrollbar.NeedsRedraw()
}

// Draw draws both surfaces onto b. A failing surface keeps its previous
// frame; the other still draws.
func (v *View) Draw(b backend.Backend) error {
	if v.disposed {
		return ErrViewDisposed
	}
	var errs []error
	if err := v.margin.Draw(b); err != nil {
		errs = append(errs, NewComponentError("margin", "draw", err))
	}
	if err := v.scrollbar.Draw(b); err != nil {
		errs = append(errs, NewComponentError("scrollbar", "draw", err))
	}
	v.dirty = false
	return errors.Join(errs...)
}

// ApplyConfig switches to cfg. Invalid configurations are rejected and
// the previous one stays in effect.
func (v *View) ApplyConfig(cfg config.Config) error {
	if v.disposed {
		return ErrViewDisposed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	palette, err := theme.Default().Merge(cfg.Theme.Colors)
	if err != nil {
		return NewComponentError("theme", "load colors", err)
	}
	registry, lua, err := buildRegistry(cfg, palette)
	if err != nil {
		return err
	}

	prev := v.cfg
	v.cfg = cfg
	v.palette = palette
	if v.lua != nil {
		v.lua.Close()
	}
	v.lua = lua

	v.margin.SetConfig(marginConfig(cfg))
	v.scrollbar.SetConfig(scrollbarConfig(cfg))
	v.scrollbar.SetColors(palette)
	v.reconciler.SetRegistry(registry)
	v.SetRect(v.area)
	if v.isActive() {
		v.observeReconcile(v.reconciler.Rebuild())
	}
	if cfg.Visible != prev.Visible {
		v.gate.Toggle(cfg.Visible)
	}
	v.logger.Info().Stringer("config", cfg).Msg("configuration applied")
	return nil
}

// Dispose tears the view down. It is safe to call more than once.
func (v *View) Dispose() {
	v.gate.Dispose()
}

func (v *View) isActive() bool {
	return !v.disposed && v.gate.State() == session.StateActive
}

func (v *View) tags(snap *tracking.Snapshot) glyph.TagSource {
	return glyph.MarkerTags{Projection: v.markers.Project(snap)}
}

// project points the reconciler at the markers carried forward to snap.
func (v *View) project(snap *tracking.Snapshot) {
	v.reconciler.SetSource(v.tags(snap))
	v.projected = snap
}

// refreshSearch restarts the placement search unless the current one
// already covers snap and the current marker set.
func (v *View) refreshSearch(snap *tracking.Snapshot) {
	prev := v.search.Current()
	if v.search.Refresh(snap, v.markers) != prev {
		v.scrollbar.Invalidate()
	}
}

func (v *View) requestRedraw() {
	v.dirty = true
	if v.onRedraw != nil {
		v.onRedraw()
	}
}

func (v *View) observeReconcile(stats glyph.Stats) {
	v.logger.Debug().
		Int("built", stats.Built).
		Int("moved", stats.Moved).
		Int("torn_down", stats.TornDown).
		Int("failed", stats.Failed).
		Msg("glyphs reconciled")
}

// activate runs on every transition into session.StateActive.
func (v *View) activate() {
	v.activations++
	if err := v.subscribeActive(); err != nil {
		v.logger.Error().Err(err).Msg("subscribing view handlers")
	}

	offset, scale := v.host.Viewport()
	v.margin.SetScroll(offset)
	v.margin.SetZoom(scale)
	v.margin.SetVisible(true)
	v.scrollbar.SetVisible(true)

	snap := v.host.Snapshot()
	v.project(snap)
	start := time.Now()
	stats := v.reconciler.Reconcile(glyph.LayoutEvent{NewOrReformatted: v.host.VisibleLines()})
	v.metrics.ObserveReconcile(time.Since(start))
	v.observeReconcile(stats)

	v.search.Restart(snap, v.markers)
	v.requestRedraw()
}

// deactivate runs on every transition from session.StateActive to
// session.StateHidden.
func (v *View) deactivate() {
	v.active.Release()
	v.search.Abort()
	n := v.reconciler.Clear()
	v.margin.SetVisible(false)
	v.scrollbar.SetVisible(false)
	v.logger.Debug().Int("torn_down", n).Msg("view hidden")
	v.requestRedraw()
}

func (v *View) dispose(wasActive bool) {
	v.disposed = true
	released := v.active.Release() + v.base.Release()
	v.search.Dispose()
	v.reconciler.Clear()
	if v.lua != nil {
		v.lua.Close()
		v.lua = nil
	}
	v.metrics.viewClosed()
	v.logger.Debug().Bool("was_active", wasActive).Int("released", released).Msg("view disposed")
	if v.onDispose != nil {
		v.onDispose(v)
	}
}

// String returns a short description for logging.
func (v *View) String() string {
	return fmt.Sprintf("view %s (%s)", v.id, v.gate.State())
}
