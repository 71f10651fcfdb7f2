package port

import (
	"context"

	"github.com/garyjia/pto-workflow/internal/domain/entity"
)

// TransitionLog is the append-only, per-document ordered store of transitions.
// Append is the only mutation in the system; everything else derives from it.
type TransitionLog interface {
	// Append stores tr as the next event of its document. It is an atomic
	// compare-and-append: it fails with ErrSequenceConflict unless
	// tr.SequenceNumber is exactly LastSequence+1 and tr.FromStatus equals the
	// latest ToStatus (or StatusNone for the first event).
	Append(ctx context.Context, tr *entity.Transition) error

	// Latest returns the newest transition, or ErrNotFound if there are none
	Latest(ctx context.Context, documentID string) (*entity.Transition, error)

	// LastSequence returns the newest sequence number, 0 when empty
	LastSequence(ctx context.Context, documentID string) (int64, error)

	// History returns all transitions oldest first. Every call returns a new slice.
	History(ctx context.Context, documentID string) ([]*entity.Transition, error)
}

// DocumentRepository stores document metadata
type DocumentRepository interface {
	// Create fails with ErrAlreadyExists if the id is taken
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*entity.Document, error)
}

// MembershipDirectory resolves principals per project
type MembershipDirectory interface {
	// Resolve returns ErrNotFound when the user is not a member of the project
	Resolve(ctx context.Context, userID, projectID string) (*entity.Principal, error)
	Upsert(ctx context.Context, m *entity.Membership) error
	ListByProject(ctx context.Context, projectID string) ([]*entity.Membership, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
