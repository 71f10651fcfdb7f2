package authz

import (
	"errors"
	"fmt"

	"github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// ErrDenied is the error kind of every authorization failure
var ErrDenied = errors.New("permission denied")

// Reason explains why a principal was denied
type Reason string

const (
	ReasonInsufficientRole      Reason = "InsufficientRole"
	ReasonMissingSignCapability Reason = "MissingSignCapability"
	ReasonNotProjectMember      Reason = "NotProjectMember"
)

// DeniedError is returned by Gate.Check
type DeniedError struct {
	Reason    Reason
	UserID    string
	ProjectID string
	Action    workflow.Action
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s may not %s in project %s (%s)", ErrDenied, e.UserID, e.Action, e.ProjectID, e.Reason)
}

// Is reports ErrDenied as the error kind
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// ReasonOf extracts the denial reason from err, or "" if err is not a denial
func ReasonOf(err error) Reason {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
