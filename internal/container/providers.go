package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/application/projection"
	"github.com/garyjia/pto-workflow/internal/application/workflow"
	"github.com/garyjia/pto-workflow/internal/infrastructure/export"
	"github.com/garyjia/pto-workflow/internal/infrastructure/persistence/memory"
	"github.com/garyjia/pto-workflow/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/pto-workflow/internal/interfaces/http"
	"github.com/garyjia/pto-workflow/internal/notification"
	"github.com/garyjia/pto-workflow/migrations"
	"github.com/garyjia/pto-workflow/pkg/database"
	"github.com/garyjia/pto-workflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups the stores behind the application ports.
type RepositoryBundle struct {
	Documents   port.DocumentRepository
	Transitions port.TransitionLog
	Members     port.MembershipDirectory
	TxManager   port.TransactionManager
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Workflow    *workflow.Service
	Projections *projection.Builder
}

// ConsumerBundle groups the intent consumers registered on the dispatcher.
type ConsumerBundle struct {
	Notifier    *notification.Notifier
	SheetWriter *export.SignedSheetWriter
}

// ProvideDatabase opens the SQLite database and, when configured, applies
// the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := database.NewMigrator(conn, logger).RunMigrations(migrations.FS, "."); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideSQLiteRepositories creates the durable stores.
func ProvideSQLiteRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Documents:   sqlite.NewDocumentRepository(db, logger),
		Transitions: sqlite.NewTransitionLog(db, logger),
		Members:     sqlite.NewMembershipDirectory(db, logger),
		TxManager:   db,
	}, nil
}

// ProvideMemoryRepositories creates process-local stores. Nothing survives a restart.
func ProvideMemoryRepositories() *RepositoryBundle {
	return &RepositoryBundle{
		Documents:   memory.NewDocumentRepository(),
		Transitions: memory.NewTransitionLog(),
		Members:     memory.NewMembershipDirectory(),
		TxManager:   memory.TxManager{},
	}
}

// ProvideDispatcher creates the intent dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(logger)), nil
}

// ServiceDeps holds the dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Dispatcher dispatcher.Dispatcher
	Config     *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideServices creates the workflow service and projection builder.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	repos := deps.Repos
	opts := []workflow.Option{
		workflow.WithMaxAttempts(deps.Config.MaxAttempts),
		workflow.WithLogger(deps.Logger),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}

	svc := workflow.NewService(repos.Documents, repos.Transitions, repos.Members, repos.TxManager, opts...)
	builder := projection.NewBuilder(repos.Documents, repos.Transitions,
		projection.WithCache(deps.Config.ProjectionCache),
		projection.WithDefinition(svc.Definition()),
		projection.WithLogger(deps.Logger))

	return &ServiceBundle{
		Workflow:    svc,
		Projections: builder,
	}, nil
}

// ConsumerDeps holds the dependencies for the intent consumers.
type ConsumerDeps struct {
	Repos       *RepositoryBundle
	Projections *projection.Builder
	Dispatcher  dispatcher.Dispatcher
	Export      *ExportConfig
	Sender      port.NotificationSender
	Logger      *zap.Logger
}

// ProvideConsumers creates the notifier and sheet writer and subscribes them
// to the dispatcher.
func ProvideConsumers(deps *ConsumerDeps) (*ConsumerBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories and dispatcher are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sender := deps.Sender
	if sender == nil {
		sender = notification.NewLogSender(deps.Logger)
	}

	bundle := &ConsumerBundle{
		Notifier: notification.NewNotifier(deps.Repos.Members, deps.Repos.Documents, sender, deps.Logger),
	}
	bundle.Notifier.Register(deps.Dispatcher)

	if deps.Export != nil && deps.Export.Enabled {
		if deps.Projections == nil {
			return nil, fmt.Errorf("projections are required for export")
		}
		if err := os.MkdirAll(deps.Export.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
		bundle.SheetWriter = export.NewSignedSheetWriter(deps.Projections, deps.Export.OutputDir, deps.Logger)
		bundle.SheetWriter.Register(deps.Dispatcher)
	}

	return bundle, nil
}

// ProvideTokenIssuer creates the bearer token issuer.
func ProvideTokenIssuer(cfg *AuthConfig) (*utils.TokenIssuer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
}

// ProvideHTTPServer creates the HTTP server over the application services.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, repos *RepositoryBundle, d dispatcher.Dispatcher, tokens *utils.TokenIssuer, logger *zap.Logger) (*httpapi.Server, error) {
	if cfg == nil || services == nil || repos == nil || tokens == nil {
		return nil, fmt.Errorf("server config, services, repositories and token issuer are required")
	}

	return httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, httpapi.Services{
		Workflow:    services.Workflow,
		Projections: services.Projections,
		Members:     repos.Members,
		Dispatcher:  d,
	}, tokens, logger), nil
}

// Migrate applies pending migrations and returns the versions now applied.
func Migrate(cfg *DatabaseConfig, logger *zap.Logger) ([]int, error) {
	migrateCfg := *cfg
	migrateCfg.AutoMigrate = true

	bundle, err := ProvideDatabase(&migrateCfg, logger)
	if err != nil {
		return nil, err
	}
	defer bundle.Conn.Close()

	applied, err := database.NewMigrator(bundle.Conn, logger).AppliedVersions()
	if err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}
