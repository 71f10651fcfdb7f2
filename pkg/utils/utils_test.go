package utils

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"doc-1", false},
		{"ACT.2026:07_b", false},
		{"", true},
		{"-leading", true},
		{"has space", true},
		{"../etc", true},
		{strings.Repeat("a", 129), true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateIdentifier("document id", tt.id)
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}

func TestNormalizeComment(t *testing.T) {
	got, err := NormalizeComment(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	blank := "  \x00 "
	got, err = NormalizeComment(&blank)
	require.NoError(t, err)
	assert.Nil(t, got)

	text := " looks\x07 good\nto me "
	got, err = NormalizeComment(&text)
	require.NoError(t, err)
	assert.Equal(t, "looks good\nto me", *got)

	long := strings.Repeat("я", MaxCommentLength+1)
	_, err = NormalizeComment(&long)
	assert.Error(t, err)
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef", time.Hour)
	require.NoError(t, err)

	token, err := issuer.GenerateToken("alice")
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)

	other, _ := NewTokenIssuer("fedcba9876543210", time.Hour)
	_, err = other.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer("short", time.Hour)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json", Name: "ptoflow"})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}
