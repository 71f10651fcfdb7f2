package entity

import "strings"

// ProjectRole is a user's role within a project
type ProjectRole string

// Project role constants
const (
	RoleAuthor   ProjectRole = "AUTHOR"
	RoleEditor   ProjectRole = "EDITOR"
	RoleReviewer ProjectRole = "REVIEWER"
	RoleSigner   ProjectRole = "SIGNER"
	RoleAdmin    ProjectRole = "ADMIN"
)

// IsValid returns true for the closed set of roles
func (r ProjectRole) IsValid() bool {
	switch r {
	case RoleAuthor, RoleEditor, RoleReviewer, RoleSigner, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r ProjectRole) String() string {
	return string(r)
}

// ParseProjectRole converts user input into a ProjectRole, accepting any letter case
func ParseProjectRole(s string) (ProjectRole, bool) {
	r := ProjectRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}
