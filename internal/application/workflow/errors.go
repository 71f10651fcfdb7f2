package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when every append attempt lost the race for the
	// next sequence slot, or when a document id is already taken
	ErrConflict = errors.New("concurrent modification")

	// ErrInvalidRequest is returned for requests missing required fields
	ErrInvalidRequest = errors.New("invalid request")
)

// ConflictError reports a transition abandoned after repeated sequence conflicts
type ConflictError struct {
	DocumentID string
	Attempts   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: document %s changed during %d attempts", ErrConflict, e.DocumentID, e.Attempts)
}

// Is reports ErrConflict as the error kind
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
