// Package app composes the overlay engine for one editor view.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrViewDisposed indicates an operation on a disposed view.
	ErrViewDisposed = errors.New("view disposed")

	// ErrViewNotFound indicates a view id unknown to the registry.
	ErrViewNotFound = errors.New("view not found")

	// ErrNilHost indicates a view was opened without a host.
	ErrNilHost = errors.New("host cannot be nil")

	// ErrBadPayload indicates an event whose payload has the wrong type.
	ErrBadPayload = errors.New("unexpected event payload")

	// ErrLoopStopped is returned by Run when it is called after the loop stopped.
	ErrLoopStopped = errors.New("loop stopped")
)

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string // Component name (e.g., "margin", "scrollbar", "glyph")
	Action    string // Action being performed
	Err       error  // Underlying error
}

// NewComponentError creates a new ComponentError.
func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{
		Component: component,
		Action:    action,
		Err:       err,
	}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Action != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Component, e.Action)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
	return e.Component
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
