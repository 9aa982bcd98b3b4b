package glyph

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Options configures a Reconciler.
type Options struct {
	// Logger receives factory failures and invariant violations.
	Logger zerolog.Logger

	// OnFactoryError is called for every icon a factory failed to create.
	OnFactoryError func(kind TagKind, err error)
}

// Stats summarizes one reconciliation pass.
type Stats struct {
	Built    int // lines whose icons were rebuilt
	Moved    int // lines whose icons were repositioned
	TornDown int // line visuals detached
	Failed   int // icons a factory failed to create
}

// Reconciler maintains the LineVisual set for the visible lines of one view.
type Reconciler struct {
	registry Registry
	surface  Surface
	source   TagSource
	opts     Options
	logger   zerolog.Logger

	visuals map[LineID]*LineVisual
	lines   map[LineID]Line
}

// NewReconciler creates a reconciler attaching elements to surface.
func NewReconciler(registry Registry, surface Surface, opts Options) *Reconciler {
	if registry == nil {
		registry = make(Registry)
	}
	return &Reconciler{
		registry: registry,
		surface:  surface,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "glyph").Logger(),
		visuals:  make(map[LineID]*LineVisual),
		lines:    make(map[LineID]Line),
	}
}

// SetSource replaces the tag source. Existing visuals are left in place
// until the next Reconcile or Rebuild.
func (r *Reconciler) SetSource(src TagSource) {
	r.source = src
}

// SetRegistry replaces the factory table. Existing visuals are left in
// place until the next Reconcile or Rebuild.
func (r *Reconciler) SetRegistry(registry Registry) {
	if registry == nil {
		registry = make(Registry)
	}
	r.registry = registry
}

// Reconcile applies one layout pass.
//
// Lines in ev.NewOrReformatted get their icons rebuilt. Lines in
// ev.Translated keep their elements, which are moved to the new offset.
// Every visual whose line is in neither list is torn down.
func (r *Reconciler) Reconcile(ev LayoutEvent) Stats {
	var st Stats
	visible := make(map[LineID]Line, ev.Size())

	for _, line := range ev.NewOrReformatted {
		visible[line.ID] = line
		st.Failed += r.build(line)
		st.Built++
	}

	for _, line := range ev.Translated {
		if _, dup := visible[line.ID]; dup {
			continue
		}
		visible[line.ID] = line

		if _, known := r.lines[line.ID]; !known {
			r.logger.Error().
				Uint64("line_id", uint64(line.ID)).
				Int("line", line.Number).
				Msg("translated line was never laid out; rebuilding")
			st.Failed += r.build(line)
			st.Built++
			continue
		}
		if v, ok := r.visuals[line.ID]; ok {
			r.move(v, line)
			st.Moved++
		}
	}

	for id, v := range r.visuals {
		if _, ok := visible[id]; !ok {
			r.teardown(v)
			delete(r.visuals, id)
			st.TornDown++
		}
	}
	r.lines = visible
	return st
}

// Rebuild re-creates the icons of every visible line, as after a marker or
// theme change.
func (r *Reconciler) Rebuild() Stats {
	var st Stats
	lines := make([]Line, 0, len(r.lines))
	for _, l := range r.lines {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Number < lines[j].Number })

	for _, line := range lines {
		st.Failed += r.build(line)
		st.Built++
	}
	return st
}

// Clear detaches every visual and forgets the visible line set.
func (r *Reconciler) Clear() int {
	n := len(r.visuals)
	for id, v := range r.visuals {
		r.teardown(v)
		delete(r.visuals, id)
	}
	r.lines = make(map[LineID]Line)
	return n
}

// Visuals returns the current visuals ordered by line number.
func (r *Reconciler) Visuals() []LineVisual {
	out := make([]LineVisual, 0, len(r.visuals))
	for _, v := range r.visuals {
		icons := make([]Icon, len(v.Icons))
		copy(icons, v.Icons)
		out = append(out, LineVisual{ID: v.ID, Line: v.Line, Icons: icons})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line.Number < out[j].Line.Number })
	return out
}

// Visual returns the visual for id.
func (r *Reconciler) Visual(id LineID) (LineVisual, bool) {
	v, ok := r.visuals[id]
	if !ok {
		return LineVisual{}, false
	}
	return *v, true
}

// Len returns the number of line visuals.
func (r *Reconciler) Len() int {
	return len(r.visuals)
}

// build replaces the visual for line and returns the number of failed icons.
func (r *Reconciler) build(line Line) int {
	if old, ok := r.visuals[line.ID]; ok {
		r.teardown(old)
		delete(r.visuals, line.ID)
	}
	if r.source == nil {
		return 0
	}

	tags := r.source.TagsOnLine(line.Number)
	if len(tags) == 0 {
		return 0
	}

	failed := 0
	taken := make(map[int]bool, 2)
	var icons []Icon
	for _, tag := range tags {
		reg, ok := r.registry[tag.Kind]
		if !ok || reg.Factory == nil {
			r.logger.Debug().Str("kind", string(tag.Kind)).Msg("no factory for tag kind")
			continue
		}
		// First tag per ordering key wins the slot.
		if taken[reg.Order] {
			continue
		}
		taken[reg.Order] = true

		el, err := create(reg.Factory, tag, line)
		if err != nil {
			failed++
			r.logger.Warn().Err(err).
				Str("kind", string(tag.Kind)).
				Str("marker", tag.Marker.ID).
				Int("line", line.Number).
				Msg("glyph factory failed")
			if r.opts.OnFactoryError != nil {
				r.opts.OnFactoryError(tag.Kind, err)
			}
			continue
		}
		icons = append(icons, Icon{Order: reg.Order, Element: el, BaseOffset: el.Offset})
	}
	if len(icons) == 0 {
		return failed
	}

	sort.SliceStable(icons, func(i, j int) bool { return icons[i].Order < icons[j].Order })
	v := &LineVisual{ID: line.ID, Line: line, Icons: icons}
	for _, ic := range icons {
		r.surface.Attach(ic.Element, ic.BaseOffset+line.Top)
	}
	r.visuals[line.ID] = v
	return failed
}

func (r *Reconciler) move(v *LineVisual, line Line) {
	v.Line = line
	for _, ic := range v.Icons {
		r.surface.Move(ic.Element, ic.BaseOffset+line.Top)
	}
}

func (r *Reconciler) teardown(v *LineVisual) {
	for _, ic := range v.Icons {
		r.surface.Detach(ic.Element)
	}
}

// create calls f, converting a panic into an error.
func create(f Factory, tag Tag, line Line) (el *Element, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			el, err = nil, fmt.Errorf("%w: %v", ErrFactoryPanic, rec)
		}
	}()
	el, err = f.Create(tag, line)
	if err == nil && el == nil {
		err = ErrNilElement
	}
	return el, err
}
