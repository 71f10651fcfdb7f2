package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
)

type membershipKey struct {
	userID    string
	projectID string
}

// MembershipDirectory implements port.MembershipDirectory in memory
type MembershipDirectory struct {
	mu      sync.RWMutex
	members map[membershipKey]entity.Membership
	now     func() time.Time
}

// NewMembershipDirectory creates an empty directory
func NewMembershipDirectory() *MembershipDirectory {
	return &MembershipDirectory{
		members: make(map[membershipKey]entity.Membership),
		now:     time.Now,
	}
}

// Resolve returns the principal for a user in a project
func (d *MembershipDirectory) Resolve(ctx context.Context, userID, projectID string) (*entity.Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.members[membershipKey{userID, projectID}]
	if !ok {
		return nil, fmt.Errorf("member %s of project %s: %w", userID, projectID, port.ErrNotFound)
	}
	p := m.Principal
	return &p, nil
}

// Upsert creates or replaces a membership
func (d *MembershipDirectory) Upsert(ctx context.Context, m *entity.Membership) error {
	if !m.ProjectRole.IsValid() {
		return fmt.Errorf("invalid project role %q", m.ProjectRole)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := *m
	stored.UpdatedAt = d.now()
	d.members[membershipKey{m.UserID, m.ProjectID}] = stored
	m.UpdatedAt = stored.UpdatedAt
	return nil
}

// ListByProject returns a project's members ordered by user id
func (d *MembershipDirectory) ListByProject(ctx context.Context, projectID string) ([]*entity.Membership, error) {
	d.mu.RLock()
	var out []*entity.Membership
	for key, m := range d.members {
		if key.projectID == projectID {
			c := m
			out = append(out, &c)
		}
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

var _ port.MembershipDirectory = (*MembershipDirectory)(nil)
