package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/workflow"
	"github.com/garyjia/pto-workflow/migrations"
	"github.com/garyjia/pto-workflow/pkg/database"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	raw, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "workflow.db"),
		MaxOpenConns: 8,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	require.NoError(t, database.NewMigrator(raw, zap.NewNop()).RunMigrations(migrations.FS, "."))
	return NewDB(raw.DB, zap.NewNop())
}

func createDoc(t *testing.T, db *DB, id string) {
	t.Helper()
	repo := NewDocumentRepository(db, nil)
	require.NoError(t, repo.Create(context.Background(), &entity.Document{
		ID: id, DocumentType: "ACT", ProjectID: "p1", CreatedBy: "u1", CreatedAt: time.Now(),
	}))
}

func transition(doc string, seq int64, from, to workflow.Status, action workflow.Action) *entity.Transition {
	return &entity.Transition{
		ID:             fmt.Sprintf("%s-%d", doc, seq),
		DocumentID:     doc,
		SequenceNumber: seq,
		FromStatus:     from,
		ToStatus:       to,
		Action:         action,
		PerformedBy:    "u1",
		OccurredAt:     time.Now(),
	}
}

func TestTransitionLog_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	createDoc(t, db, "doc-1")
	log := NewTransitionLog(db, nil)

	_, err := log.Latest(ctx, "doc-1")
	assert.ErrorIs(t, err, port.ErrNotFound)
	seq, err := log.LastSequence(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, seq)

	comment := "ready for review"
	submit := transition("doc-1", 2, workflow.StatusDraft, workflow.StatusInReview, workflow.ActionSubmit)
	submit.Comment = &comment

	require.NoError(t, log.Append(ctx, transition("doc-1", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)))
	require.NoError(t, log.Append(ctx, submit))

	latest, err := log.Latest(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.SequenceNumber)
	assert.Equal(t, workflow.StatusInReview, latest.ToStatus)
	assert.Equal(t, "ready for review", latest.CommentText())

	seq, err = log.LastSequence(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	history, err := log.History(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, workflow.StatusNone, history[0].FromStatus)
	assert.Nil(t, history[0].Comment)
	assert.Equal(t, workflow.ActionSubmit, history[1].Action)
}

func TestTransitionLog_AppendRejectsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	createDoc(t, db, "doc-1")
	log := NewTransitionLog(db, nil)

	tests := []struct {
		name string
		tr   *entity.Transition
	}{
		{"first event not from none", transition("doc-1", 1, workflow.StatusDraft, workflow.StatusInReview, workflow.ActionSubmit)},
		{"gap before first event", transition("doc-1", 2, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, log.Append(ctx, tt.tr), port.ErrSequenceConflict)
		})
	}

	require.NoError(t, log.Append(ctx, transition("doc-1", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)))

	dup := transition("doc-1", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)
	dup.ID = "other-id"
	assert.ErrorIs(t, log.Append(ctx, dup), port.ErrSequenceConflict)

	gap := transition("doc-1", 3, workflow.StatusDraft, workflow.StatusInReview, workflow.ActionSubmit)
	assert.ErrorIs(t, log.Append(ctx, gap), port.ErrSequenceConflict)

	wrongFrom := transition("doc-1", 2, workflow.StatusInReview, workflow.StatusPendingSignature, workflow.ActionApprove)
	assert.ErrorIs(t, log.Append(ctx, wrongFrom), port.ErrSequenceConflict)

	history, err := log.History(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "failed appends must leave no rows behind")
}

func TestTransitionLog_AppendUnknownDocument(t *testing.T) {
	db := setupDB(t)
	log := NewTransitionLog(db, nil)

	err := log.Append(context.Background(), transition("ghost", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate))
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTransitionLog_ConcurrentAppendSameSlot(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	createDoc(t, db, "doc-1")
	log := NewTransitionLog(db, nil)
	require.NoError(t, log.Append(ctx, transition("doc-1", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)))

	const writers = 6
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tr := transition("doc-1", 2, workflow.StatusDraft, workflow.StatusInReview, workflow.ActionSubmit)
			tr.ID = fmt.Sprintf("writer-%d", i)
			err := log.Append(ctx, tr)
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, port.ErrSequenceConflict)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	seq, err := log.LastSequence(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestDB_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	docs := NewDocumentRepository(db, nil)
	log := NewTransitionLog(db, nil)
	boom := errors.New("boom")

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, docs.Create(ctx, &entity.Document{ID: "doc-9", ProjectID: "p1", CreatedAt: time.Now()}))
		require.NoError(t, log.Append(ctx, transition("doc-9", 1, workflow.StatusNone, workflow.StatusDraft, workflow.ActionCreate)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = docs.GetByID(ctx, "doc-9")
	assert.ErrorIs(t, err, port.ErrNotFound)
	seq, err := log.LastSequence(ctx, "doc-9")
	require.NoError(t, err)
	assert.Zero(t, seq)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewDocumentRepository(db, nil)
	loc := "block-A"
	now := time.Now().UTC().Truncate(time.Second)

	doc := &entity.Document{ID: "doc-1", DocumentType: "ACT", ProjectID: "p1", LocationID: &loc, CreatedBy: "u1", CreatedAt: now}
	require.NoError(t, repo.Create(ctx, doc))
	assert.ErrorIs(t, repo.Create(ctx, doc), port.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "block-A", got.Location())
	assert.Equal(t, "u1", got.CreatedBy)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &entity.Document{ID: "doc-2", ProjectID: "p1", CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &entity.Document{ID: "doc-3", ProjectID: "p2", CreatedAt: now}))

	list, err := repo.ListByProject(ctx, "p1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "doc-2", list[0].ID)
	assert.Nil(t, list[0].LocationID)

	page, err := repo.ListByProject(ctx, "p1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "doc-1", page[0].ID)
}

func TestMembershipDirectory(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	dir := NewMembershipDirectory(db, nil)

	_, err := dir.Resolve(ctx, "u1", "p1")
	assert.ErrorIs(t, err, port.ErrNotFound)

	m := &entity.Membership{Principal: entity.Principal{UserID: "u1", ProjectID: "p1", ProjectRole: entity.RoleSigner, CanSign: true}}
	require.NoError(t, dir.Upsert(ctx, m))
	assert.False(t, m.UpdatedAt.IsZero())

	p, err := dir.Resolve(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSigner, p.ProjectRole)
	assert.True(t, p.CanSign)

	m.ProjectRole = entity.RoleReviewer
	m.CanSign = false
	require.NoError(t, dir.Upsert(ctx, m))
	p, err = dir.Resolve(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleReviewer, p.ProjectRole)
	assert.False(t, p.CanSign)

	assert.Error(t, dir.Upsert(ctx, &entity.Membership{Principal: entity.Principal{UserID: "u2", ProjectID: "p1", ProjectRole: "GUEST"}}))

	require.NoError(t, dir.Upsert(ctx, &entity.Membership{Principal: entity.Principal{UserID: "u0", ProjectID: "p1", ProjectRole: entity.RoleAuthor}}))
	list, err := dir.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u0", list[0].UserID)
}
