package entity

import "time"

// Principal is an acting user resolved for one project.
// The workflow reads it for authorization and never mutates it.
type Principal struct {
	UserID      string      `json:"user_id"`
	ProjectID   string      `json:"project_id"`
	ProjectRole ProjectRole `json:"project_role"`
	CanSign     bool        `json:"can_sign"`
}

// Membership is the persisted form of a principal's role in a project
type Membership struct {
	Principal
	UpdatedAt time.Time `json:"updated_at"`
}
