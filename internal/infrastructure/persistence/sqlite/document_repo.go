package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"go.uber.org/zap"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) *DocumentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRepository{db: db, logger: logger}
}

// Create inserts a document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (id, document_type, project_id, location_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.executor(ctx).ExecContext(ctx, query,
		doc.ID,
		doc.DocumentType,
		doc.ProjectID,
		nullString(doc.LocationID),
		doc.CreatedBy,
		doc.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("document %s: %w", doc.ID, port.ErrAlreadyExists)
	}
	if err != nil {
		r.logger.Error("Failed to create document", zap.String("document_id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `
		SELECT id, document_type, project_id, location_id, created_by, created_at
		FROM documents
		WHERE id = ?
	`

	doc, err := scanDocument(r.db.executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByProject returns a project's documents, newest first
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, document_type, project_id, location_id, created_by, created_at
		FROM documents
		WHERE project_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.executor(ctx).QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*entity.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(s scanner) (*entity.Document, error) {
	var doc entity.Document
	var location sql.NullString

	if err := s.Scan(
		&doc.ID,
		&doc.DocumentType,
		&doc.ProjectID,
		&location,
		&doc.CreatedBy,
		&doc.CreatedAt,
	); err != nil {
		return nil, err
	}

	if location.Valid {
		doc.LocationID = &location.String
	}
	return &doc, nil
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
