package container

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/application/workflow"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []port.Message
}

func (s *recordingSender) Send(ctx context.Context, msg port.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func testConfig(t *testing.T, driver string) *Config {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.Storage.Driver = driver
	cfg.Database.Path = filepath.Join(dir, "db", "ptoflow.db")
	cfg.Auth.JWTSecret = "container-test-secret"
	cfg.Export.OutputDir = filepath.Join(dir, "sheets")
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, true},
		{"memory without path", func(c *Config) { c.Storage.Driver = DriverMemory; c.Database.Path = "" }, false},
		{"zero attempts", func(c *Config) { c.Workflow.MaxAttempts = 0 }, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"export without dir", func(c *Config) { c.Export.OutputDir = "" }, true},
		{"export disabled", func(c *Config) { c.Export.Enabled = false; c.Export.OutputDir = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Auth.JWTSecret = "0123456789abcdef"
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	_, err := NewContainer(DefaultConfig(), zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(nil, zap.NewNop())
	assert.Error(t, err)
}

func runLifecycle(t *testing.T, c *Container) {
	t.Helper()
	ctx := context.Background()

	members := c.Repositories().Members
	for _, p := range []entity.Principal{
		{UserID: "alice", ProjectID: "proj-1", ProjectRole: entity.RoleAuthor},
		{UserID: "rita", ProjectID: "proj-1", ProjectRole: entity.RoleReviewer},
		{UserID: "sam", ProjectID: "proj-1", ProjectRole: entity.RoleSigner, CanSign: true},
	} {
		require.NoError(t, members.Upsert(ctx, &entity.Membership{Principal: p}))
	}

	svc := c.Services().Workflow
	_, _, err := svc.CreateDocument(ctx, workflow.NewDocument{
		ID: "doc-1", DocumentType: "ACT_HIDDEN_WORKS", ProjectID: "proj-1",
	}, "alice", nil)
	require.NoError(t, err)

	for _, step := range []struct {
		user   string
		action domainwf.Action
	}{
		{"alice", domainwf.ActionSubmit},
		{"rita", domainwf.ActionApprove},
		{"sam", domainwf.ActionSign},
	} {
		_, err := svc.RequestTransition(ctx, workflow.Request{DocumentID: "doc-1", Action: step.action, PrincipalID: step.user})
		require.NoError(t, err)
	}

	status, err := c.Services().Projections.CurrentStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusSigned, status)
}

func TestContainer_MemoryLifecycle(t *testing.T) {
	cfg := testConfig(t, DriverMemory)
	sender := &recordingSender{}

	c, err := NewContainer(cfg, zap.NewNop(), WithSender(sender))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))

	require.NotNil(t, c.Server())
	require.NotNil(t, c.Tokens())
	require.NotNil(t, c.Consumers().SheetWriter)

	runLifecycle(t, c)

	health := c.Health()
	assert.True(t, health.Overall, "%+v", health.Components)

	// Close drains pending intents
	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())

	assert.FileExists(t, filepath.Join(cfg.Export.OutputDir, "proj-1", "doc-1-signed.xlsx"))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.NotEmpty(t, sender.sent)
}

func TestContainer_SQLiteLifecycle(t *testing.T) {
	cfg := testConfig(t, DriverSQLite)
	cfg.Export.Enabled = false

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	runLifecycle(t, c)
	assert.Nil(t, c.Consumers().SheetWriter)

	health := c.Health()
	assert.True(t, health.Components["storage"].Healthy)
	require.NoError(t, c.Close())

	// A fresh container over the same file sees the recorded history
	c2, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c2.Start(context.Background()))
	defer c2.Close()

	history, err := c2.Repositories().Transitions.History(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestMigrate(t *testing.T) {
	cfg := testConfig(t, DriverSQLite)
	cfg.Database.AutoMigrate = false

	versions, err := Migrate(&cfg.Database, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)

	again, err := Migrate(&cfg.Database, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, versions, again)
}
