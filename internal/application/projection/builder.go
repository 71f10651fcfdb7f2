// Package projection derives read models from the transition log. Nothing here
// writes; every view can be rebuilt from History alone.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// ErrNotFound is returned for unknown documents or documents without history
var ErrNotFound = errors.New("document not found")

// ErrCorrupt is returned by Verify when a stored history breaks an invariant
var ErrCorrupt = errors.New("corrupt transition history")

// TimelineEntry is one row of a document's audit trail
type TimelineEntry struct {
	SequenceNumber int64           `json:"sequence_number"`
	Action         domainwf.Action `json:"action"`
	FromStatus     domainwf.Status `json:"from_status"`
	ToStatus       domainwf.Status `json:"to_status"`
	PerformedBy    string          `json:"performed_by"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Comment        *string         `json:"comment,omitempty"`
}

// DocumentView is a document with its derived status
type DocumentView struct {
	entity.Document
	Status       domainwf.Status `json:"status"`
	LastSequence int64           `json:"last_sequence"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type cachedTimeline struct {
	lastSequence int64
	entries      []TimelineEntry
}

// Builder serves status and timeline views
type Builder struct {
	documents  port.DocumentRepository
	log        port.TransitionLog
	definition *domainwf.Definition
	logger     *zap.Logger

	cacheEnabled bool
	mu           sync.RWMutex
	timelines    map[string]cachedTimeline
}

// Option configures the builder
type Option func(*Builder)

// WithCache keeps built timelines and revalidates them against LastSequence
func WithCache(enabled bool) Option {
	return func(b *Builder) {
		b.cacheEnabled = enabled
	}
}

// WithDefinition sets the table used by Verify
func WithDefinition(def *domainwf.Definition) Option {
	return func(b *Builder) {
		if def != nil {
			b.definition = def
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a projection builder
func NewBuilder(documents port.DocumentRepository, log port.TransitionLog, opts ...Option) *Builder {
	b := &Builder{
		documents:  documents,
		log:        log,
		definition: domainwf.DocumentLifecycle(),
		logger:     zap.NewNop(),
		timelines:  make(map[string]cachedTimeline),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CurrentStatus is the ToStatus of the latest transition
func (b *Builder) CurrentStatus(ctx context.Context, documentID string) (domainwf.Status, error) {
	latest, err := b.log.Latest(ctx, documentID)
	if errors.Is(err, port.ErrNotFound) {
		return domainwf.StatusNone, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return domainwf.StatusNone, fmt.Errorf("failed to read latest transition: %w", err)
	}
	return latest.ToStatus, nil
}

// Timeline returns the audit trail oldest first. Each call returns a new slice.
func (b *Builder) Timeline(ctx context.Context, documentID string) ([]TimelineEntry, error) {
	if b.cacheEnabled {
		seq, err := b.log.LastSequence(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("failed to read last sequence: %w", err)
		}
		b.mu.RLock()
		cached, ok := b.timelines[documentID]
		b.mu.RUnlock()
		if ok && cached.lastSequence == seq {
			return copyEntries(cached.entries), nil
		}
	}

	history, err := b.log.History(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}

	entries := make([]TimelineEntry, len(history))
	for i, tr := range history {
		entries[i] = TimelineEntry{
			SequenceNumber: tr.SequenceNumber,
			Action:         tr.Action,
			FromStatus:     tr.FromStatus,
			ToStatus:       tr.ToStatus,
			PerformedBy:    tr.PerformedBy,
			OccurredAt:     tr.OccurredAt,
			Comment:        tr.Comment,
		}
	}

	if b.cacheEnabled {
		b.mu.Lock()
		// A concurrent rebuild may have stored a newer snapshot
		if cur, ok := b.timelines[documentID]; !ok || cur.lastSequence < history[len(history)-1].SequenceNumber {
			b.timelines[documentID] = cachedTimeline{
				lastSequence: history[len(history)-1].SequenceNumber,
				entries:      copyEntries(entries),
			}
		}
		b.mu.Unlock()
	}

	return entries, nil
}

// Document returns the document metadata joined with its derived status
func (b *Builder) Document(ctx context.Context, documentID string) (*DocumentView, error) {
	doc, err := b.documents.GetByID(ctx, documentID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	latest, err := b.log.Latest(ctx, documentID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s has no history", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest transition: %w", err)
	}

	return &DocumentView{
		Document:     *doc,
		Status:       latest.ToStatus,
		LastSequence: latest.SequenceNumber,
		UpdatedAt:    latest.OccurredAt,
	}, nil
}

// ListByProject returns views for a project's documents, newest first
func (b *Builder) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*DocumentView, error) {
	docs, err := b.documents.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	views := make([]*DocumentView, 0, len(docs))
	for _, doc := range docs {
		view, err := b.Document(ctx, doc.ID)
		if errors.Is(err, ErrNotFound) {
			// Registered but CREATE not yet visible
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Invalidate drops the cached timeline of a document
func (b *Builder) Invalidate(documentID string) {
	b.mu.Lock()
	delete(b.timelines, documentID)
	b.mu.Unlock()
}

// Verify replays the full history through the state machine and checks that
// sequence numbers are gapless from 1 and each event starts where the
// previous one ended.
func (b *Builder) Verify(ctx context.Context, documentID string) error {
	history, err := b.log.History(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}

	machine := b.definition.Machine(domainwf.StatusNone)
	for i, tr := range history {
		if want := int64(i + 1); tr.SequenceNumber != want {
			return b.corrupt(documentID, tr, fmt.Sprintf("expected sequence %d", want))
		}
		if tr.FromStatus != machine.State() {
			return b.corrupt(documentID, tr, fmt.Sprintf("starts from %s but previous status is %s", tr.FromStatus, machine.State()))
		}
		if err := machine.Fire(tr.Action); err != nil {
			return b.corrupt(documentID, tr, err.Error())
		}
		if machine.State() != tr.ToStatus {
			return b.corrupt(documentID, tr, fmt.Sprintf("records %s but table yields %s", tr.ToStatus, machine.State()))
		}
	}
	return nil
}

func (b *Builder) corrupt(documentID string, tr *entity.Transition, detail string) error {
	b.logger.Error("Transition history failed verification",
		zap.String("document_id", documentID),
		zap.Int64("sequence_number", tr.SequenceNumber),
		zap.String("detail", detail))
	return fmt.Errorf("%w: document %s at sequence %d: %s", ErrCorrupt, documentID, tr.SequenceNumber, detail)
}

func copyEntries(entries []TimelineEntry) []TimelineEntry {
	out := make([]TimelineEntry, len(entries))
	copy(out, entries)
	return out
}
