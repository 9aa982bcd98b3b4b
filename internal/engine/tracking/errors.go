package tracking

import "errors"

// Errors returned by snapshot operations.
var (
	// ErrForked indicates a snapshot already has a successor.
	ErrForked = errors.New("snapshot already has a successor")

	// ErrNoEdits indicates Apply was called without any edit.
	ErrNoEdits = errors.New("no edits to apply")

	// ErrNilText indicates a snapshot was requested for nil text.
	ErrNilText = errors.New("nil text")
)
