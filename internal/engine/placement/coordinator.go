package placement

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/marker"
)

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	Logger   zerolog.Logger
	Observer Observer

	// Post schedules fn on the view's owner goroutine. When nil, completions
	// are applied on the worker goroutine.
	Post func(fn func())

	// OnResult is called on the owner goroutine after a new Result was
	// published.
	OnResult func(*Result)
}

// Coordinator owns the current search of one view and its latest result.
type Coordinator struct {
	opts   CoordinatorOptions
	logger zerolog.Logger

	mu       sync.Mutex
	current  *Search
	disposed bool

	latest atomic.Pointer[Result]
}

// NewCoordinator creates a coordinator with no search.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	return &Coordinator{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "placement").Logger(),
	}
}

// Restart aborts the in-flight search, if any, and starts a new one over
// snap and set. It returns nil once the coordinator is disposed.
func (c *Coordinator) Restart(snap *tracking.Snapshot, set *marker.Set) *Search {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	if c.current != nil {
		c.current.Abort()
	}
	c.current = Start(snap, set, c.completed, Options{
		Logger:   c.opts.Logger,
		Observer: c.opts.Observer,
	})
	return c.current
}

// Refresh starts a search unless the current one, running or completed,
// already covers snap and set.
func (c *Coordinator) Refresh(snap *tracking.Snapshot, set *marker.Set) *Search {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur != nil && cur.Snapshot() == snap && cur.Set() == set {
		switch cur.State() {
		case StateRunning, StateCompleted:
			return cur
		}
	}
	return c.Restart(snap, set)
}

// Abort aborts the in-flight search, if any.
func (c *Coordinator) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return false
	}
	return c.current.Abort()
}

// Current returns the current search, which may have finished.
func (c *Coordinator) Current() *Search {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Latest returns the most recently published Result, or nil.
func (c *Coordinator) Latest() *Result {
	return c.latest.Load()
}

// Reset forgets the latest result.
func (c *Coordinator) Reset() {
	c.latest.Store(nil)
}

// Dispose aborts the in-flight search and drops every later completion.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	if c.current != nil {
		c.current.Abort()
	}
	c.current = nil
	c.latest.Store(nil)
}

// completed runs on the worker goroutine.
func (c *Coordinator) completed(s *Search) {
	if c.opts.Post == nil {
		c.apply(s)
		return
	}
	c.opts.Post(func() { c.apply(s) })
}

// apply publishes s's result if s is still the current search.
func (c *Coordinator) apply(s *Search) {
	c.mu.Lock()
	if c.disposed || c.current != s {
		c.mu.Unlock()
		c.logger.Debug().Str("search", s.ID()).Msg("dropping stale search result")
		return
	}
	res, ok := s.Result()
	if !ok {
		c.mu.Unlock()
		return
	}
	c.latest.Store(res)
	c.mu.Unlock()

	if c.opts.OnResult != nil {
		c.opts.OnResult(res)
	}
}
