package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"go.uber.org/zap"
)

// MembershipDirectory implements port.MembershipDirectory over project_members
type MembershipDirectory struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
}

// NewMembershipDirectory creates a new membership directory
func NewMembershipDirectory(db *DB, logger *zap.Logger) *MembershipDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipDirectory{db: db, logger: logger, now: time.Now}
}

// Resolve returns the principal for a user in a project
func (d *MembershipDirectory) Resolve(ctx context.Context, userID, projectID string) (*entity.Principal, error) {
	query := `
		SELECT user_id, project_id, project_role, can_sign, updated_at
		FROM project_members
		WHERE user_id = ? AND project_id = ?
	`

	m, err := scanMembership(d.db.executor(ctx).QueryRowContext(ctx, query, userID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s in project %s: %w", userID, projectID, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member: %w", err)
	}
	p := m.Principal
	return &p, nil
}

// Upsert creates or replaces a membership
func (d *MembershipDirectory) Upsert(ctx context.Context, m *entity.Membership) error {
	if !m.ProjectRole.IsValid() {
		return fmt.Errorf("invalid project role %q", m.ProjectRole)
	}

	updatedAt := d.now().UTC()
	query := `
		INSERT INTO project_members (user_id, project_id, project_role, can_sign, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, project_id) DO UPDATE SET
			project_role = excluded.project_role,
			can_sign = excluded.can_sign,
			updated_at = excluded.updated_at
	`

	_, err := d.db.executor(ctx).ExecContext(ctx, query,
		m.UserID, m.ProjectID, string(m.ProjectRole), m.CanSign, updatedAt,
	)
	if err != nil {
		d.logger.Error("Failed to upsert member",
			zap.String("user_id", m.UserID),
			zap.String("project_id", m.ProjectID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	m.UpdatedAt = updatedAt
	return nil
}

// ListByProject returns a project's members ordered by user id
func (d *MembershipDirectory) ListByProject(ctx context.Context, projectID string) ([]*entity.Membership, error) {
	query := `
		SELECT user_id, project_id, project_role, can_sign, updated_at
		FROM project_members
		WHERE project_id = ?
		ORDER BY user_id
	`

	rows, err := d.db.executor(ctx).QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entity.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMembership(s scanner) (*entity.Membership, error) {
	var m entity.Membership
	var role string

	if err := s.Scan(&m.UserID, &m.ProjectID, &role, &m.CanSign, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ProjectRole = entity.ProjectRole(role)
	return &m, nil
}

var _ port.MembershipDirectory = (*MembershipDirectory)(nil)
