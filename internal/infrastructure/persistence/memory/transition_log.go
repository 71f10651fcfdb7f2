// Package memory provides in-process implementations of the persistence ports.
// They are used by tests and by the memory storage driver.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// stream holds one document's events. Its mutex is the per-document
// serialization point; documents never contend with each other.
type stream struct {
	mu     sync.RWMutex
	events []*entity.Transition
}

// TransitionLog implements port.TransitionLog in memory
type TransitionLog struct {
	mu      sync.RWMutex
	streams map[string]*stream
}

// NewTransitionLog creates an empty log
func NewTransitionLog() *TransitionLog {
	return &TransitionLog{
		streams: make(map[string]*stream),
	}
}

func (l *TransitionLog) stream(documentID string, create bool) *stream {
	l.mu.RLock()
	s, ok := l.streams[documentID]
	l.mu.RUnlock()
	if ok || !create {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok = l.streams[documentID]; !ok {
		s = &stream{}
		l.streams[documentID] = s
	}
	return s
}

// Append stores tr if it is exactly the next event of its document
func (l *TransitionLog) Append(ctx context.Context, tr *entity.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tr == nil || tr.DocumentID == "" {
		return fmt.Errorf("transition requires a document id")
	}

	s := l.stream(tr.DocumentID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	last := int64(len(s.events))
	expectedFrom := workflow.StatusNone
	if last > 0 {
		expectedFrom = s.events[last-1].ToStatus
	}

	if tr.SequenceNumber != last+1 {
		return fmt.Errorf("%w: document %s expects sequence %d, got %d",
			port.ErrSequenceConflict, tr.DocumentID, last+1, tr.SequenceNumber)
	}
	if tr.FromStatus != expectedFrom {
		return fmt.Errorf("%w: document %s is %s, transition starts from %s",
			port.ErrSequenceConflict, tr.DocumentID, expectedFrom, tr.FromStatus)
	}

	s.events = append(s.events, tr.Clone())
	return nil
}

// Latest returns the newest transition of a document
func (l *TransitionLog) Latest(ctx context.Context, documentID string) (*entity.Transition, error) {
	s := l.stream(documentID, false)
	if s == nil {
		return nil, port.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return nil, port.ErrNotFound
	}
	return s.events[len(s.events)-1].Clone(), nil
}

// LastSequence returns the newest sequence number, 0 when the document has no events
func (l *TransitionLog) LastSequence(ctx context.Context, documentID string) (int64, error) {
	s := l.stream(documentID, false)
	if s == nil {
		return 0, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// History returns a copy of a document's events, oldest first
func (l *TransitionLog) History(ctx context.Context, documentID string) ([]*entity.Transition, error) {
	s := l.stream(documentID, false)
	if s == nil {
		return []*entity.Transition{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Transition, len(s.events))
	for i, tr := range s.events {
		out[i] = tr.Clone()
	}
	return out, nil
}

// Verify interface compliance
var _ port.TransitionLog = (*TransitionLog)(nil)
