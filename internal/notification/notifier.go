// Package notification turns workflow intents into messages for project
// members. Delivery goes through a port.NotificationSender.
package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/event"
)

// route decides who hears about an intent
type route struct {
	subject string
	roles   []entity.ProjectRole
	// signersOnly restricts recipients to members with the sign flag
	signersOnly bool
	// includeCreator adds the document's creator
	includeCreator bool
}

var routes = map[event.Type]route{
	event.TypeDocumentCreated: {
		subject: "New draft",
		roles:   []entity.ProjectRole{entity.RoleEditor},
	},
	event.TypeReviewRequested: {
		subject: "Review requested",
		roles:   []entity.ProjectRole{entity.RoleReviewer},
	},
	event.TypeSignatureRequested: {
		subject:     "Signature requested",
		roles:       []entity.ProjectRole{entity.RoleSigner, entity.RoleAdmin},
		signersOnly: true,
	},
	event.TypeDocumentRejected: {
		subject:        "Document rejected",
		roles:          []entity.ProjectRole{entity.RoleAuthor},
		includeCreator: true,
	},
	event.TypeDocumentSigned: {
		subject:        "Document signed",
		includeCreator: true,
	},
}

// Notifier resolves recipients for intents and hands messages to a sender
type Notifier struct {
	members   port.RecipientResolver
	documents port.DocumentRepository
	sender    port.NotificationSender
	logger    *zap.Logger

	mu       sync.Mutex
	sent     map[string]struct{}
	inFlight map[string]chan struct{}
}

// NewNotifier creates a notifier
func NewNotifier(members port.RecipientResolver, documents port.DocumentRepository, sender port.NotificationSender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		members:   members,
		documents: documents,
		sender:    sender,
		logger:    logger,
		sent:      make(map[string]struct{}),
		inFlight:  make(map[string]chan struct{}),
	}
}

// Register subscribes the notifier to every intent it routes
func (n *Notifier) Register(d dispatcher.Dispatcher) {
	for t := range routes {
		d.SubscribeNamed(t, "notifier", n.Handle)
	}
}

// Handle sends one message per intent. An intent already handled is skipped.
func (n *Notifier) Handle(ctx context.Context, evt *event.Event) error {
	r, ok := routes[evt.Type]
	if !ok {
		return nil
	}

	key := evt.CorrelationID + "/" + evt.Type.String()
	claimed, err := n.claim(ctx, key)
	if err != nil {
		return err
	}
	if !claimed {
		n.logger.Debug("Notification already sent, skipping",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()))
		return nil
	}

	err = n.deliver(ctx, evt, r)
	n.release(key, err == nil)
	return err
}

// claim marks key as in flight. A concurrent delivery of the same key is
// waited for; claim reports false once the key has been sent.
func (n *Notifier) claim(ctx context.Context, key string) (bool, error) {
	for {
		n.mu.Lock()
		if _, done := n.sent[key]; done {
			n.mu.Unlock()
			return false, nil
		}
		wait, busy := n.inFlight[key]
		if !busy {
			n.inFlight[key] = make(chan struct{})
			n.mu.Unlock()
			return true, nil
		}
		n.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func (n *Notifier) release(key string, sent bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if sent {
		n.sent[key] = struct{}{}
	}
	close(n.inFlight[key])
	delete(n.inFlight, key)
}

func (n *Notifier) deliver(ctx context.Context, evt *event.Event, r route) error {
	recipients, err := n.recipients(ctx, evt, r)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		n.logger.Info("No recipients for intent",
			zap.String("event_type", evt.Type.String()),
			zap.String("document_id", evt.DocumentID))
		return nil
	}

	msg := port.Message{
		DocumentID: evt.DocumentID,
		ProjectID:  evt.ProjectID,
		Recipients: recipients,
		Subject:    fmt.Sprintf("%s: %s", r.subject, evt.DocumentID),
		Body:       body(evt),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s notification: %w", evt.Type, err)
	}
	return nil
}

func (n *Notifier) recipients(ctx context.Context, evt *event.Event, r route) ([]string, error) {
	set := make(map[string]struct{})

	if len(r.roles) > 0 {
		members, err := n.members.ListByProject(ctx, evt.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("list project members: %w", err)
		}
		for _, m := range members {
			if !hasRole(r.roles, m.ProjectRole) || (r.signersOnly && !m.CanSign) {
				continue
			}
			set[m.UserID] = struct{}{}
		}
	}

	if r.includeCreator && n.documents != nil {
		doc, err := n.documents.GetByID(ctx, evt.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		if doc.CreatedBy != "" {
			set[doc.CreatedBy] = struct{}{}
		}
	}

	// The actor already knows
	delete(set, evt.GetPayloadString(event.KeyPerformedBy))

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func hasRole(roles []entity.ProjectRole, role entity.ProjectRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func body(evt *event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %s (%s) moved %s -> %s by %s.",
		evt.DocumentID,
		evt.GetPayloadString(event.KeyDocumentType),
		evt.GetPayloadString(event.KeyFromStatus),
		evt.GetPayloadString(event.KeyToStatus),
		evt.GetPayloadString(event.KeyPerformedBy))
	if stage := evt.GetPayloadString(event.KeyRejectedAt); stage != "" {
		fmt.Fprintf(&b, " Rejected at stage %s.", stage)
	}
	if c := evt.GetPayloadString(event.KeyComment); c != "" {
		fmt.Fprintf(&b, "\nComment: %s", c)
	}
	return b.String()
}
