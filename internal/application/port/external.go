package port

import (
	"context"

	"github.com/garyjia/pto-workflow/internal/domain/entity"
)

// Message is a notification addressed to project members
type Message struct {
	DocumentID string
	ProjectID  string
	Recipients []string
	Subject    string
	Body       string
}

// NotificationSender delivers messages over an external channel (email, websocket, chat)
type NotificationSender interface {
	Send(ctx context.Context, msg Message) error
}

// RecipientResolver lists the members holding a role in a project
type RecipientResolver interface {
	ListByProject(ctx context.Context, projectID string) ([]*entity.Membership, error)
}
