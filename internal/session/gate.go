// Package session gates the overlay on the user's session and visibility
// preference.
package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is the gate's lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateHidden
	StateActive
	StateDisposed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHidden:
		return "hidden"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Hooks run on transitions. They are called with the gate's transition
// lock held and must not call back into the gate.
type Hooks struct {
	// Activate runs on every transition into StateActive.
	Activate func()

	// Deactivate runs on every transition from StateActive to StateHidden.
	Deactivate func()

	// Dispose runs once, on the transition into StateDisposed.
	Dispose func(wasActive bool)

	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

// Options configures a Gate.
type Options struct {
	Logger zerolog.Logger

	// Visible is the user's initial auto-hide preference.
	Visible bool
}

// Gate is the session/visibility state machine of one view.
//
// The overlay is active only while the session is ready and the user wants
// it shown. Signals may arrive from any goroutine; transitions are
// serialized so each hook runs at most once per transition.
type Gate struct {
	transition sync.Mutex

	mu       sync.Mutex
	state    State
	loggedIn bool
	visible  bool

	hooks  Hooks
	logger zerolog.Logger
}

// New creates a gate in StateUninitialized.
func New(hooks Hooks, opts Options) *Gate {
	return &Gate{
		visible: opts.Visible,
		hooks:   hooks,
		logger:  opts.Logger.With().Str("component", "session").Logger(),
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Visible returns the user's visibility preference.
func (g *Gate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// SessionReady records that the session is usable.
func (g *Gate) SessionReady() State {
	return g.update(func() { g.loggedIn = true })
}

// SessionLogout records that the session ended.
func (g *Gate) SessionLogout() State {
	return g.update(func() { g.loggedIn = false })
}

// Toggle records the user's visibility preference.
func (g *Gate) Toggle(visible bool) State {
	return g.update(func() { g.visible = visible })
}

// Dispose moves the gate to StateDisposed. Later signals are ignored.
// It is safe to call more than once.
func (g *Gate) Dispose() {
	g.transition.Lock()
	defer g.transition.Unlock()

	g.mu.Lock()
	from := g.state
	if from == StateDisposed {
		g.mu.Unlock()
		return
	}
	g.state = StateDisposed
	g.mu.Unlock()

	g.logTransition(from, StateDisposed)
	if g.hooks.Dispose != nil {
		g.hooks.Dispose(from == StateActive)
	}
}

func (g *Gate) update(apply func()) State {
	g.transition.Lock()
	defer g.transition.Unlock()

	g.mu.Lock()
	if g.state == StateDisposed {
		g.mu.Unlock()
		return StateDisposed
	}
	apply()
	from := g.state
	to := g.target()
	g.state = to
	g.mu.Unlock()

	if from == to {
		return to
	}
	g.logTransition(from, to)

	switch {
	case to == StateActive:
		if g.hooks.Activate != nil {
			g.hooks.Activate()
		}
	case from == StateActive:
		if g.hooks.Deactivate != nil {
			g.hooks.Deactivate()
		}
	}
	return to
}

// target computes the state implied by the flags. Called with mu held.
func (g *Gate) target() State {
	if !g.loggedIn {
		if g.state == StateUninitialized {
			return StateUninitialized
		}
		return StateHidden
	}
	if g.visible {
		return StateActive
	}
	return StateHidden
}

func (g *Gate) logTransition(from, to State) {
	g.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("session state changed")
	if g.hooks.OnTransition != nil {
		g.hooks.OnTransition(from, to)
	}
}
