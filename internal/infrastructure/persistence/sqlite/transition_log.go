package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/workflow"
	"go.uber.org/zap"
)

// TransitionLog implements port.TransitionLog. document_heads is the
// latest-by-document index and the compare-and-append guard.
type TransitionLog struct {
	db     *DB
	logger *zap.Logger
}

// NewTransitionLog creates a new transition log
func NewTransitionLog(db *DB, logger *zap.Logger) *TransitionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionLog{db: db, logger: logger}
}

const transitionColumns = `t.id, t.document_id, t.sequence_number, t.from_status, t.to_status,
	t.action, t.performed_by, t.comment, t.occurred_at`

// Append inserts the row and advances the head in one transaction
func (l *TransitionLog) Append(ctx context.Context, tr *entity.Transition) error {
	if tr == nil || tr.DocumentID == "" {
		return fmt.Errorf("transition requires a document id")
	}

	return l.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := l.db.executor(ctx)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO document_transitions (
				id, document_id, sequence_number, from_status, to_status,
				action, performed_by, comment, occurred_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tr.ID,
			tr.DocumentID,
			tr.SequenceNumber,
			string(tr.FromStatus),
			string(tr.ToStatus),
			string(tr.Action),
			tr.PerformedBy,
			nullString(tr.Comment),
			tr.OccurredAt.UTC(),
		)
		if err != nil {
			return l.appendError(tr, err)
		}

		if tr.SequenceNumber == 1 {
			if tr.FromStatus != workflow.StatusNone {
				return l.conflict(tr, "first transition must start from NONE")
			}
			_, err = exec.ExecContext(ctx, `
				INSERT INTO document_heads (document_id, last_sequence, last_status, last_transition_id)
				VALUES (?, ?, ?, ?)`,
				tr.DocumentID, tr.SequenceNumber, string(tr.ToStatus), tr.ID,
			)
			if err != nil {
				return l.appendError(tr, err)
			}
			return nil
		}

		res, err := exec.ExecContext(ctx, `
			UPDATE document_heads
			SET last_sequence = ?, last_status = ?, last_transition_id = ?
			WHERE document_id = ? AND last_sequence = ? AND last_status = ?`,
			tr.SequenceNumber, string(tr.ToStatus), tr.ID,
			tr.DocumentID, tr.SequenceNumber-1, string(tr.FromStatus),
		)
		if err != nil {
			return l.appendError(tr, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return l.conflict(tr, "head moved")
		}
		return nil
	})
}

func (l *TransitionLog) appendError(tr *entity.Transition, err error) error {
	switch {
	case isUniqueViolation(err):
		return l.conflict(tr, "slot taken")
	case isForeignKeyViolation(err):
		return fmt.Errorf("document %s: %w", tr.DocumentID, port.ErrNotFound)
	}
	l.logger.Error("Failed to append transition",
		zap.String("document_id", tr.DocumentID),
		zap.Int64("sequence_number", tr.SequenceNumber),
		zap.Error(err))
	return fmt.Errorf("failed to append transition: %w", err)
}

func (l *TransitionLog) conflict(tr *entity.Transition, why string) error {
	l.logger.Debug("Append lost compare-and-append",
		zap.String("document_id", tr.DocumentID),
		zap.Int64("sequence_number", tr.SequenceNumber),
		zap.String("reason", why))
	return fmt.Errorf("%w: document %s sequence %d: %s",
		port.ErrSequenceConflict, tr.DocumentID, tr.SequenceNumber, why)
}

// Latest follows the head pointer
func (l *TransitionLog) Latest(ctx context.Context, documentID string) (*entity.Transition, error) {
	row := l.db.executor(ctx).QueryRowContext(ctx, `
		SELECT `+transitionColumns+`
		FROM document_heads h
		JOIN document_transitions t ON t.id = h.last_transition_id
		WHERE h.document_id = ?`, documentID)

	tr, err := scanTransition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no transitions for document %s: %w", documentID, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest transition: %w", err)
	}
	return tr, nil
}

// LastSequence returns 0 for a document without a head
func (l *TransitionLog) LastSequence(ctx context.Context, documentID string) (int64, error) {
	var seq int64
	err := l.db.executor(ctx).QueryRowContext(ctx,
		`SELECT last_sequence FROM document_heads WHERE document_id = ?`, documentID,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last sequence: %w", err)
	}
	return seq, nil
}

// History returns every transition oldest first
func (l *TransitionLog) History(ctx context.Context, documentID string) ([]*entity.Transition, error) {
	rows, err := l.db.executor(ctx).QueryContext(ctx, `
		SELECT `+transitionColumns+`
		FROM document_transitions t
		WHERE t.document_id = ?
		ORDER BY t.sequence_number ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []*entity.Transition
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		history = append(history, tr)
	}
	return history, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransition(s scanner) (*entity.Transition, error) {
	var (
		tr               entity.Transition
		from, to, action string
		comment          sql.NullString
	)
	err := s.Scan(
		&tr.ID,
		&tr.DocumentID,
		&tr.SequenceNumber,
		&from,
		&to,
		&action,
		&tr.PerformedBy,
		&comment,
		&tr.OccurredAt,
	)
	if err != nil {
		return nil, err
	}

	tr.FromStatus = workflow.Status(from)
	tr.ToStatus = workflow.Status(to)
	tr.Action = workflow.Action(action)
	if comment.Valid {
		tr.Comment = &comment.String
	}
	return &tr, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ port.TransitionLog = (*TransitionLog)(nil)
