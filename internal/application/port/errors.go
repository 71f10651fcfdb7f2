package port

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a unique key is already taken
	ErrAlreadyExists = errors.New("already exists")

	// ErrSequenceConflict is returned by TransitionLog.Append when another
	// writer has already taken the sequence slot
	ErrSequenceConflict = errors.New("sequence conflict")
)
