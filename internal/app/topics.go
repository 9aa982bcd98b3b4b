package app

import (
	"context"
	"fmt"

	"github.com/dshills/marginalia/internal/config"
	"github.com/dshills/marginalia/internal/event"
	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

// Event topics a view listens on. Events are published on the view's
// owner goroutine.
const (
	// Session events. No payload.
	TopicSessionReady  event.Topic = "marginalia.session.ready"
	TopicSessionLogout event.Topic = "marginalia.session.logout"

	// TopicVisibilityToggled carries the new auto-hide preference as a bool.
	TopicVisibilityToggled event.Topic = "marginalia.visibility.toggled"

	// TopicMarkersChanged carries the replacement *marker.Set.
	TopicMarkersChanged event.Topic = "marginalia.markers.changed"

	// TopicConfigChanged carries a reloaded config.Config.
	TopicConfigChanged event.Topic = "marginalia.config.changed"

	// TopicLayoutChanged carries a glyph.LayoutEvent.
	TopicLayoutChanged event.Topic = "marginalia.layout.changed"

	// TopicBufferChanged is published after the host's snapshot advanced.
	// No payload.
	TopicBufferChanged event.Topic = "marginalia.buffer.changed"

	// View geometry. Both carry a float64.
	TopicScroll event.Topic = "marginalia.view.scroll"
	TopicZoom   event.Topic = "marginalia.view.zoom"
)

func payload[T any](ev event.Event) (T, error) {
	v, ok := ev.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s wants %T, got %T", ErrBadPayload, ev.Topic, zero, ev.Payload)
	}
	return v, nil
}

// subscribeBase registers the handlers that live as long as the view.
func (v *View) subscribeBase() error {
	if v.bus == nil {
		return nil
	}
	subs := []struct {
		topic event.Topic
		fn    event.HandlerFunc
	}{
		{TopicSessionReady, func(context.Context, event.Event) error {
			v.OnSessionReady()
			return nil
		}},
		{TopicSessionLogout, func(context.Context, event.Event) error {
			v.OnSessionLogout()
			return nil
		}},
		{TopicVisibilityToggled, func(_ context.Context, ev event.Event) error {
			visible, err := payload[bool](ev)
			if err != nil {
				return err
			}
			v.Toggle(visible)
			return nil
		}},
		{TopicMarkersChanged, func(_ context.Context, ev event.Event) error {
			set, err := payload[*marker.Set](ev)
			if err != nil {
				return err
			}
			v.OnMarkerChanged(set)
			return nil
		}},
		{TopicConfigChanged, func(_ context.Context, ev event.Event) error {
			cfg, err := payload[config.Config](ev)
			if err != nil {
				return err
			}
			return v.ApplyConfig(cfg)
		}},
	}
	for _, s := range subs {
		if err := v.base.Add(v.bus.Subscribe(s.topic, s.fn)); err != nil {
			v.base.Release()
			return err
		}
	}
	return nil
}

// subscribeActive registers the handlers of one activation. They are
// released together when the view deactivates.
func (v *View) subscribeActive() error {
	if v.bus == nil {
		return nil
	}
	subs := []struct {
		topic event.Topic
		fn    event.HandlerFunc
	}{
		{TopicLayoutChanged, func(_ context.Context, ev event.Event) error {
			le, err := payload[glyph.LayoutEvent](ev)
			if err != nil {
				return err
			}
			v.OnLayoutChanged(le)
			return nil
		}},
		{TopicBufferChanged, func(context.Context, event.Event) error {
			v.OnBufferChanged()
			return nil
		}},
		{TopicScroll, func(_ context.Context, ev event.Event) error {
			offset, err := payload[float64](ev)
			if err != nil {
				return err
			}
			v.OnScroll(offset)
			return nil
		}},
		{TopicZoom, func(_ context.Context, ev event.Event) error {
			scale, err := payload[float64](ev)
			if err != nil {
				return err
			}
			v.OnZoom(scale)
			return nil
		}},
	}
	for _, s := range subs {
		if err := v.active.Add(v.bus.Subscribe(s.topic, s.fn)); err != nil {
			v.active.Release()
			return err
		}
	}
	return nil
}
