package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
)

// DocumentRepository implements port.DocumentRepository in memory
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]entity.Document
}

// NewDocumentRepository creates an empty repository
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: make(map[string]entity.Document)}
}

// Create stores doc unless its id is taken
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.ID]; exists {
		return fmt.Errorf("document %s: %w", doc.ID, port.ErrAlreadyExists)
	}
	r.docs[doc.ID] = copyDocument(doc)
	return nil
}

// GetByID returns a document or port.ErrNotFound
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, port.ErrNotFound)
	}
	out := copyDocument(&doc)
	return &out, nil
}

// ListByProject returns a project's documents, newest first
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*entity.Document, error) {
	r.mu.RLock()
	var docs []*entity.Document
	for _, doc := range r.docs {
		if doc.ProjectID == projectID {
			d := copyDocument(&doc)
			docs = append(docs, &d)
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	if offset >= len(docs) {
		return []*entity.Document{}, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

func copyDocument(doc *entity.Document) entity.Document {
	c := *doc
	if doc.LocationID != nil {
		loc := *doc.LocationID
		c.LocationID = &loc
	}
	return c
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
