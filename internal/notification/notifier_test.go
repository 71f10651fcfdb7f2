package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/event"
	"github.com/garyjia/pto-workflow/internal/infrastructure/persistence/memory"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []port.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg port.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func setup(t *testing.T) (*Notifier, *recordingSender) {
	t.Helper()
	ctx := context.Background()

	members := memory.NewMembershipDirectory()
	for _, p := range []entity.Principal{
		{UserID: "alice", ProjectID: "p1", ProjectRole: entity.RoleAuthor},
		{UserID: "bob", ProjectID: "p1", ProjectRole: entity.RoleAuthor},
		{UserID: "eddie", ProjectID: "p1", ProjectRole: entity.RoleEditor},
		{UserID: "rita", ProjectID: "p1", ProjectRole: entity.RoleReviewer},
		{UserID: "sam", ProjectID: "p1", ProjectRole: entity.RoleSigner, CanSign: true},
		{UserID: "sid", ProjectID: "p1", ProjectRole: entity.RoleSigner},
		{UserID: "ada", ProjectID: "p1", ProjectRole: entity.RoleAdmin, CanSign: true},
		{UserID: "rex", ProjectID: "p2", ProjectRole: entity.RoleReviewer},
	} {
		require.NoError(t, members.Upsert(ctx, &entity.Membership{Principal: p}))
	}

	docs := memory.NewDocumentRepository()
	require.NoError(t, docs.Create(ctx, &entity.Document{ID: "doc-1", ProjectID: "p1", DocumentType: "ACT", CreatedBy: "eddie", CreatedAt: time.Now()}))

	sender := &recordingSender{}
	return NewNotifier(members, docs, sender, zap.NewNop()), sender
}

func intent(t event.Type, performer string, extra map[string]interface{}) *event.Event {
	payload := map[string]interface{}{
		event.KeyPerformedBy:  performer,
		event.KeyFromStatus:   "IN_REVIEW",
		event.KeyToStatus:     "REJECTED",
		event.KeyDocumentType: "ACT",
	}
	for k, v := range extra {
		payload[k] = v
	}
	return event.NewEventWithCorrelation(t, "doc-1", "p1", payload, "tr-1")
}

func TestNotifier_Recipients(t *testing.T) {
	tests := []struct {
		name      string
		eventType event.Type
		performer string
		want      []string
	}{
		{"review goes to reviewers of the project", event.TypeReviewRequested, "alice", []string{"rita"}},
		{"signature goes to members with the sign flag", event.TypeSignatureRequested, "rita", []string{"ada", "sam"}},
		{"rejection goes to authors and creator", event.TypeDocumentRejected, "rita", []string{"alice", "bob", "eddie"}},
		{"actor is not notified", event.TypeDocumentRejected, "bob", []string{"alice", "eddie"}},
		{"signed goes to creator", event.TypeDocumentSigned, "sam", []string{"eddie"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, sender := setup(t)
			require.NoError(t, n.Handle(context.Background(), intent(tt.eventType, tt.performer, nil)))
			require.Len(t, sender.msgs, 1)
			assert.Equal(t, tt.want, sender.msgs[0].Recipients)
			assert.Equal(t, "doc-1", sender.msgs[0].DocumentID)
		})
	}
}

func TestNotifier_Body(t *testing.T) {
	n, sender := setup(t)
	evt := intent(event.TypeDocumentRejected, "rita", map[string]interface{}{
		event.KeyRejectedAt: "IN_REVIEW",
		event.KeyComment:    "missing stamp",
	})

	require.NoError(t, n.Handle(context.Background(), evt))
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0].Subject, "Document rejected")
	assert.Contains(t, sender.msgs[0].Body, "Rejected at stage IN_REVIEW")
	assert.Contains(t, sender.msgs[0].Body, "missing stamp")
}

func TestNotifier_Idempotent(t *testing.T) {
	n, sender := setup(t)
	evt := intent(event.TypeReviewRequested, "alice", nil)

	require.NoError(t, n.Handle(context.Background(), evt))
	require.NoError(t, n.Handle(context.Background(), evt))
	assert.Len(t, sender.msgs, 1)
}

func TestNotifier_SenderFailureAllowsRetry(t *testing.T) {
	n, sender := setup(t)
	sender.err = errors.New("smtp down")
	evt := intent(event.TypeReviewRequested, "alice", nil)

	assert.Error(t, n.Handle(context.Background(), evt))

	sender.err = nil
	require.NoError(t, n.Handle(context.Background(), evt))
	assert.Len(t, sender.msgs, 1)
}

// blockingSender holds every Send until release is closed
type blockingSender struct {
	recordingSender
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSender) Send(ctx context.Context, msg port.Message) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.recordingSender.Send(ctx, msg)
}

func TestNotifier_ConcurrentDuplicatesSendOnce(t *testing.T) {
	base, _ := setup(t)
	sender := &blockingSender{entered: make(chan struct{}), release: make(chan struct{})}
	n := NewNotifier(base.members, base.documents, sender, nil)
	evt := intent(event.TypeReviewRequested, "alice", nil)

	const dupes = 8
	errs := make(chan error, dupes)
	go func() { errs <- n.Handle(context.Background(), evt) }()
	<-sender.entered

	for i := 1; i < dupes; i++ {
		go func() { errs <- n.Handle(context.Background(), evt) }()
	}

	// A duplicate that gives up while the first delivery is pending
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Handle(cancelled, evt), context.Canceled)

	close(sender.release)
	for i := 0; i < dupes; i++ {
		require.NoError(t, <-errs)
	}
	assert.Len(t, sender.msgs, 1)
}

func TestNotifier_IgnoresUnroutedIntents(t *testing.T) {
	n, sender := setup(t)
	require.NoError(t, n.Handle(context.Background(), intent(event.TypeDocumentArchived, "ada", nil)))
	assert.Empty(t, sender.msgs)
}

func TestNotifier_Register(t *testing.T) {
	n, sender := setup(t)
	d := dispatcher.NewDispatcher()
	n.Register(d)

	assert.Len(t, d.ListHandlers(event.TypeReviewRequested), 1)
	assert.Empty(t, d.ListHandlers(event.TypeStatusChanged))

	d.DispatchAsync(context.Background(), intent(event.TypeSignatureRequested, "rita", nil))
	require.NoError(t, d.Close())
	assert.Len(t, sender.msgs, 1)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), port.Message{
		DocumentID: "doc-1", Recipients: []string{"rita"}, Subject: "Review requested: doc-1",
	}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "notification", entries[0].LoggerName)
	assert.Equal(t, "doc-1", entries[0].ContextMap()["document_id"])
}
