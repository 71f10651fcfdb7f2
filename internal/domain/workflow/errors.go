package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a (status, action) pair is absent from the table
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a status is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrUnknownAction is returned when an action is outside the closed set
	ErrUnknownAction = errors.New("unknown action")
)

// InvalidTransitionError carries the attempted action and the status it was attempted from
type InvalidTransitionError struct {
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: action %s is not allowed from status %s", ErrInvalidTransition, e.Action, e.From)
}

// Is reports ErrInvalidTransition as the error kind
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// UnknownActionError carries the rejected input
type UnknownActionError struct {
	Value string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownAction, e.Value)
}

// Is reports ErrUnknownAction as the error kind
func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownAction
}
