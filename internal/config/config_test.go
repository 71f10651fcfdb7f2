package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/pto-workflow/internal/container"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: memory
workflow:
  max_attempts: 5
auth:
  jwt_secret: file-secret-0123456789
  token_ttl: 1h
logger:
  format: console
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, container.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Workflow.MaxAttempts)
	assert.True(t, cfg.Workflow.ProjectionCache)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, 5, cc.Workflow.MaxAttempts)
	assert.Equal(t, "file-secret-0123456789", cc.Auth.JWTSecret)
	assert.Equal(t, "ptoflow", cfg.ToLoggerConfig().Name)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("PTOFLOW_AUTH_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("PTOFLOW_WORKFLOW_MAX_ATTEMPTS", "7")

	path := writeConfig(t, "auth:\n  jwt_secret: file-secret-0123456789\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, 7, cfg.Workflow.MaxAttempts)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "storage:\n  driver: memory\n"},
		{"bad driver", "storage:\n  driver: postgres\nauth:\n  jwt_secret: file-secret-0123456789\n"},
		{"bad format", "logger:\n  format: xml\nauth:\n  jwt_secret: file-secret-0123456789\n"},
		{"bad port", "server:\n  port: 70000\nauth:\n  jwt_secret: file-secret-0123456789\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	viper.Reset()
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
