package marker

import (
	"errors"
	"fmt"
)

// Errors returned while building or decoding markers.
var (
	// ErrInvalidPayload indicates the annotation payload is not valid JSON.
	ErrInvalidPayload = errors.New("invalid annotation payload")

	// ErrMissingID indicates a marker without an identifier.
	ErrMissingID = errors.New("marker has no id")

	// ErrInvalidLine indicates a marker with a missing or negative anchor line.
	ErrInvalidLine = errors.New("marker has invalid anchor line")

	// ErrUnknownColor indicates a color name the engine does not know.
	ErrUnknownColor = errors.New("unknown marker color")

	// ErrUnknownKind indicates a kind name the engine does not know.
	ErrUnknownKind = errors.New("unknown marker kind")
)

// RecordError describes a single rejected marker record.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("marker %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("marker %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}
