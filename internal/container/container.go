package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	httpapi "github.com/garyjia/pto-workflow/internal/interfaces/http"
	"github.com/garyjia/pto-workflow/pkg/database"
	"github.com/garyjia/pto-workflow/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	conn         *database.DB
	repositories *RepositoryBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	consumers  *ConsumerBundle

	// Interfaces
	tokens *utils.TokenIssuer
	server *httpapi.Server

	// Optional override of the notification channel
	sender port.NotificationSender

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Option customizes a Container
type Option func(*Container)

// WithSender replaces the logging notification sender
func WithSender(sender port.NotificationSender) Option {
	return func(c *Container) {
		c.sender = sender
	}
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components:
// 1. Storage (database and repositories)
// 2. Intent dispatcher
// 3. Workflow service and projections
// 4. Intent consumers
// 5. HTTP server (not yet listening)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization",
		zap.String("storage_driver", c.config.Storage.Driver))

	if err := c.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized")

	if err := c.initDispatcher(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	if err := c.initServices(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initConsumers(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize intent consumers: %w", err)
	}

	if err := c.initServer(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order. Pending
// intents are delivered before the database closes.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %v", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() []error {
	var errs []error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
		c.server = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.conn = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	switch {
	case c.config.Storage.Driver == DriverMemory:
		status.Components["storage"] = ComponentHealth{Healthy: c.repositories != nil, Message: "memory"}
	case c.conn == nil:
		status.Components["storage"] = ComponentHealth{Healthy: false, Message: "not initialized"}
	default:
		if err := c.conn.Ping(); err != nil {
			status.Components["storage"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
		} else {
			status.Components["storage"] = ComponentHealth{Healthy: true, Message: "sqlite"}
		}
	}

	if c.dispatcher != nil {
		stats := c.dispatcher.Stats()
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("dispatched %d, failed %d, in flight %d", stats.Dispatched, stats.Failed, stats.InFlight),
		}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
	}

	for _, h := range status.Components {
		if !h.Healthy {
			status.Overall = false
		}
	}
	return status
}

func (c *Container) initStorage() error {
	if c.config.Storage.Driver == DriverMemory {
		c.repositories = ProvideMemoryRepositories()
		return nil
	}

	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = dbBundle.Conn

	repos, err := ProvideSQLiteRepositories(dbBundle.TransactionMgr, c.logger)
	if err != nil {
		_ = c.conn.Close()
		c.conn = nil
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		Dispatcher: c.dispatcher,
		Config:     &c.config.Workflow,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initConsumers() error {
	consumers, err := ProvideConsumers(&ConsumerDeps{
		Repos:       c.repositories,
		Projections: c.services.Projections,
		Dispatcher:  c.dispatcher,
		Export:      &c.config.Export,
		Sender:      c.sender,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.consumers = consumers
	return nil
}

func (c *Container) initServer() error {
	tokens, err := ProvideTokenIssuer(&c.config.Auth)
	if err != nil {
		return err
	}
	c.tokens = tokens

	server, err := ProvideHTTPServer(&c.config.Server, c.services, c.repositories, c.dispatcher, tokens, c.logger)
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the intent dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Consumers returns the registered intent consumers.
func (c *Container) Consumers() *ConsumerBundle {
	return c.consumers
}

// Tokens returns the bearer token issuer.
func (c *Container) Tokens() *utils.TokenIssuer {
	return c.tokens
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
