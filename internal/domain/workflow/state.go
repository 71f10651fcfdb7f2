package workflow

// Status represents a document status in the approval lifecycle
type Status string

const (
	// StatusNone is the sentinel "non-existent" status a document has before CREATE
	StatusNone Status = ""

	StatusDraft            Status = "DRAFT"
	StatusInReview         Status = "IN_REVIEW"
	StatusPendingSignature Status = "PENDING_SIGNATURE"
	StatusSigned           Status = "SIGNED"
	StatusRejected         Status = "REJECTED"
	StatusArchived         Status = "ARCHIVED"
)

// IsTerminal returns true if no further transitions are possible from the status
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// String returns the string representation of the status
func (s Status) String() string {
	if s == StatusNone {
		return "NONE"
	}
	return string(s)
}

// IsValid returns true if the status is a real document status (the sentinel is not)
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft,
		StatusInReview,
		StatusPendingSignature,
		StatusSigned,
		StatusRejected,
		StatusArchived:
		return true
	default:
		return false
	}
}

// AllStatuses returns every document status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusInReview,
		StatusPendingSignature,
		StatusSigned,
		StatusRejected,
		StatusArchived,
	}
}
