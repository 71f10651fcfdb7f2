// Package container provides dependency injection and lifecycle management
// for the document workflow engine.
package container

import (
	"fmt"
	"time"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Workflow WorkflowConfig
	Auth     AuthConfig
	Export   ExportConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// AutoMigrate applies pending embedded migrations on start
	AutoMigrate bool
}

// StorageConfig selects where transitions, documents and memberships live.
type StorageConfig struct {
	Driver string
}

// WorkflowConfig tunes the workflow service and projections.
type WorkflowConfig struct {
	// MaxAttempts bounds retries after a sequence conflict
	MaxAttempts int

	// ProjectionCache keeps built timelines in memory
	ProjectionCache bool
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// ExportConfig controls the signed approval sheet writer.
type ExportConfig struct {
	Enabled   bool
	OutputDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/ptoflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
			AutoMigrate:     true,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Workflow: WorkflowConfig{
			MaxAttempts:     3,
			ProjectionCache: true,
		},
		Auth: AuthConfig{
			TokenTTL: 72 * time.Hour,
		},
		Export: ExportConfig{
			Enabled:   true,
			OutputDir: "signed_sheets",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.Storage.Driver)
	}

	if c.Workflow.MaxAttempts < 1 {
		return fmt.Errorf("workflow.max_attempts must be at least 1")
	}

	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}

	if c.Export.Enabled && c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required when export is enabled")
	}

	return nil
}
