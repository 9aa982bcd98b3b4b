package placement

import "errors"

var (
	// ErrAborted indicates the search was aborted before completing.
	ErrAborted = errors.New("placement search aborted")

	// ErrNilSnapshot indicates a search started without a snapshot.
	ErrNilSnapshot = errors.New("placement search has no snapshot")
)
