package entity

import (
	"time"

	"github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// Transition is an immutable record of one authorized status change
type Transition struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"document_id"`
	SequenceNumber int64           `json:"sequence_number"`
	FromStatus     workflow.Status `json:"from_status"`
	ToStatus       workflow.Status `json:"to_status"`
	Action         workflow.Action `json:"action"`
	PerformedBy    string          `json:"performed_by"`
	Comment        *string         `json:"comment,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// CommentText returns the comment or "" when none was given
func (t *Transition) CommentText() string {
	if t.Comment == nil {
		return ""
	}
	return *t.Comment
}

// Clone returns a copy that shares no pointers with t
func (t *Transition) Clone() *Transition {
	c := *t
	if t.Comment != nil {
		comment := *t.Comment
		c.Comment = &comment
	}
	return &c
}
