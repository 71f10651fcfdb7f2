package workflow

import "strings"

// Action represents a user action that can cause a status transition
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionSubmit  Action = "SUBMIT"
	ActionReview  Action = "REVIEW"
	ActionApprove Action = "APPROVE"
	ActionSign    Action = "SIGN"
	ActionReject  Action = "REJECT"
	ActionRevise  Action = "REVISE"
	ActionArchive Action = "ARCHIVE"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action belongs to the closed action set
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate,
		ActionSubmit,
		ActionReview,
		ActionApprove,
		ActionSign,
		ActionReject,
		ActionRevise,
		ActionArchive:
		return true
	default:
		return false
	}
}

// ParseAction converts user input into an Action, accepting any letter case
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", &UnknownActionError{Value: s}
	}
	return a, nil
}

// AllActions returns every action of the closed set
func AllActions() []Action {
	return []Action{
		ActionCreate,
		ActionSubmit,
		ActionReview,
		ActionApprove,
		ActionSign,
		ActionReject,
		ActionRevise,
		ActionArchive,
	}
}
