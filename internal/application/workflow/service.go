// Package workflow is the orchestration point between the authorization gate,
// the state machine and the transition log.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/authz"
	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/event"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// DefaultMaxAttempts bounds the retries after a sequence conflict
const DefaultMaxAttempts = 3

// Request asks for one action on an existing document
type Request struct {
	DocumentID  string
	Action      domainwf.Action
	PrincipalID string
	Comment     *string
}

// Result is a recorded transition and the intents it declared
type Result struct {
	Transition *entity.Transition
	Intents    []*event.Event
}

// NewDocument describes a document to register with CreateDocument
type NewDocument struct {
	ID           string
	DocumentType string
	ProjectID    string
	LocationID   *string
}

// Service runs transition requests. It holds no per-document state.
type Service struct {
	documents port.DocumentRepository
	log       port.TransitionLog
	members   port.MembershipDirectory
	txManager port.TransactionManager

	definition  *domainwf.Definition
	gate        *authz.Gate
	dispatcher  dispatcher.Dispatcher
	maxAttempts int
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
}

// Option configures the service
type Option func(*Service)

// WithDispatcher publishes intents after each successful transition
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithMaxAttempts sets how many appends are tried before ErrConflict
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock overrides the time source used for OccurredAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides transition id generation
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithDefinition replaces the document lifecycle table
func WithDefinition(def *domainwf.Definition) Option {
	return func(s *Service) {
		s.definition = def
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a workflow service
func NewService(
	documents port.DocumentRepository,
	log port.TransitionLog,
	members port.MembershipDirectory,
	txManager port.TransactionManager,
	opts ...Option,
) *Service {
	s := &Service{
		documents:   documents,
		log:         log,
		members:     members,
		txManager:   txManager,
		definition:  domainwf.DocumentLifecycle(),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.gate = authz.NewGate(s.definition)

	return s
}

// Definition returns the transition table the service enforces
func (s *Service) Definition() *domainwf.Definition {
	return s.definition
}

// RequestTransition authorizes, validates and records one action.
// Denials and invalid transitions are returned before anything is written.
// A lost race re-reads the latest transition and tries again, at most
// maxAttempts times.
func (s *Service) RequestTransition(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.PrincipalID) == "" {
		return nil, fmt.Errorf("%w: document id and principal are required", ErrInvalidRequest)
	}
	if !req.Action.IsValid() {
		return nil, &domainwf.UnknownActionError{Value: string(req.Action)}
	}

	doc, err := s.loadDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	principal, err := s.resolve(ctx, req.PrincipalID, doc.ProjectID, req.Action)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		tr, err := s.attempt(ctx, doc, principal, req.Action, req.Comment)
		if err == nil {
			return s.complete(ctx, doc, tr), nil
		}
		if !errors.Is(err, port.ErrSequenceConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("Sequence conflict, retrying",
			zap.String("document_id", doc.ID),
			zap.String("action", req.Action.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	s.logger.Warn("Transition abandoned after repeated conflicts",
		zap.String("document_id", doc.ID),
		zap.String("action", req.Action.String()),
		zap.Int("attempts", s.maxAttempts),
		zap.NamedError("last_error", lastErr))
	return nil, &ConflictError{DocumentID: doc.ID, Attempts: s.maxAttempts}
}

// CreateDocument registers a document and records its CREATE transition in
// one transaction. The principal must hold the author capability in the
// target project before anything is written.
func (s *Service) CreateDocument(ctx context.Context, nd NewDocument, principalID string, comment *string) (*entity.Document, *Result, error) {
	if strings.TrimSpace(nd.ID) == "" || strings.TrimSpace(nd.ProjectID) == "" ||
		strings.TrimSpace(nd.DocumentType) == "" || strings.TrimSpace(principalID) == "" {
		return nil, nil, fmt.Errorf("%w: id, document_type, project_id and principal are required", ErrInvalidRequest)
	}

	principal, err := s.resolve(ctx, principalID, nd.ProjectID, domainwf.ActionCreate)
	if err != nil {
		return nil, nil, err
	}
	if err := s.gate.Check(principal, domainwf.ActionCreate, authz.DocumentContext{
		DocumentID: nd.ID,
		ProjectID:  nd.ProjectID,
		FromStatus: domainwf.StatusNone,
	}); err != nil {
		return nil, nil, err
	}

	doc := &entity.Document{
		ID:           nd.ID,
		DocumentType: nd.DocumentType,
		ProjectID:    nd.ProjectID,
		LocationID:   nd.LocationID,
		CreatedBy:    principal.UserID,
		CreatedAt:    s.now(),
	}

	var tr *entity.Transition
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.documents.Create(ctx, doc); err != nil {
			if errors.Is(err, port.ErrAlreadyExists) {
				return fmt.Errorf("%w: document %s already exists", ErrConflict, doc.ID)
			}
			return err
		}

		var err error
		tr, err = s.attempt(ctx, doc, principal, domainwf.ActionCreate, comment)
		if errors.Is(err, port.ErrSequenceConflict) {
			return &ConflictError{DocumentID: doc.ID, Attempts: 1}
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return doc, s.complete(ctx, doc, tr), nil
}

// AvailableActions lists the actions the principal could take on the document
// right now. Non-members get an empty list.
func (s *Service) AvailableActions(ctx context.Context, documentID, principalID string) ([]domainwf.Action, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	from, _, err := s.head(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	principal, err := s.members.Resolve(ctx, principalID, doc.ProjectID)
	if errors.Is(err, port.ErrNotFound) {
		return []domainwf.Action{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}

	actions := []domainwf.Action{}
	for _, action := range s.definition.PermittedActions(from) {
		dc := authz.DocumentContext{DocumentID: doc.ID, ProjectID: doc.ProjectID, FromStatus: from}
		if s.gate.Check(principal, action, dc) == nil {
			actions = append(actions, action)
		}
	}
	return actions, nil
}

// attempt is one read-check-append cycle against the current head
func (s *Service) attempt(ctx context.Context, doc *entity.Document, principal *entity.Principal, action domainwf.Action, comment *string) (*entity.Transition, error) {
	from, lastSeq, err := s.head(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Check(principal, action, authz.DocumentContext{
		DocumentID: doc.ID,
		ProjectID:  doc.ProjectID,
		FromStatus: from,
	}); err != nil {
		return nil, err
	}

	to, err := s.definition.Evaluate(from, action)
	if err != nil {
		return nil, err
	}

	tr := &entity.Transition{
		ID:             s.newID(),
		DocumentID:     doc.ID,
		SequenceNumber: lastSeq + 1,
		FromStatus:     from,
		ToStatus:       to,
		Action:         action,
		PerformedBy:    principal.UserID,
		Comment:        comment,
		OccurredAt:     s.now(),
	}

	// Cancellation is honoured up to the append; once appended the transition stands.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.log.Append(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

func (s *Service) complete(ctx context.Context, doc *entity.Document, tr *entity.Transition) *Result {
	intents := Intents(doc, tr)

	s.logger.Info("Transition recorded",
		zap.String("document_id", doc.ID),
		zap.Int64("sequence_number", tr.SequenceNumber),
		zap.String("action", tr.Action.String()),
		zap.String("from_status", tr.FromStatus.String()),
		zap.String("to_status", tr.ToStatus.String()),
		zap.String("performed_by", tr.PerformedBy))

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, intents...)
	}

	return &Result{Transition: tr, Intents: intents}
}

func (s *Service) head(ctx context.Context, documentID string) (domainwf.Status, int64, error) {
	latest, err := s.log.Latest(ctx, documentID)
	if errors.Is(err, port.ErrNotFound) {
		return domainwf.StatusNone, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to read latest transition: %w", err)
	}
	return latest.ToStatus, latest.SequenceNumber, nil
}

func (s *Service) loadDocument(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

func (s *Service) resolve(ctx context.Context, userID, projectID string, action domainwf.Action) (*entity.Principal, error) {
	principal, err := s.members.Resolve(ctx, userID, projectID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, &authz.DeniedError{
			Reason:    authz.ReasonNotProjectMember,
			UserID:    userID,
			ProjectID: projectID,
			Action:    action,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return principal, nil
}
