// Package authz decides whether a principal may perform an action on a document.
// It is pure and holds no locks.
package authz

import (
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// DocumentContext is what the gate needs to know about the target document
type DocumentContext struct {
	DocumentID string
	ProjectID  string
	FromStatus workflow.Status
}

var roleCapabilities = map[entity.ProjectRole][]workflow.Capability{
	entity.RoleAuthor:   {workflow.CapabilityAuthor},
	entity.RoleEditor:   {workflow.CapabilityEditor},
	entity.RoleReviewer: {workflow.CapabilityReviewer},
	entity.RoleSigner:   {workflow.CapabilitySigner},
	entity.RoleAdmin: {
		workflow.CapabilityAuthor,
		workflow.CapabilityEditor,
		workflow.CapabilityReviewer,
		workflow.CapabilitySigner,
		workflow.CapabilityAdmin,
	},
}

// Capabilities returns the capability set granted by a role
func Capabilities(role entity.ProjectRole) []workflow.Capability {
	return append([]workflow.Capability(nil), roleCapabilities[role]...)
}

// HasCapability reports whether role grants c
func HasCapability(role entity.ProjectRole, c workflow.Capability) bool {
	for _, granted := range roleCapabilities[role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Gate checks principals against the capability column of a transition table
type Gate struct {
	definition *workflow.Definition
}

// NewGate creates a gate over def, or the document lifecycle when def is nil
func NewGate(def *workflow.Definition) *Gate {
	if def == nil {
		def = workflow.DocumentLifecycle()
	}
	return &Gate{definition: def}
}

// Check returns nil when principal may perform action on the document, otherwise
// a *DeniedError. Pairs absent from the table are allowed here so the state
// machine reports them as invalid transitions.
func (g *Gate) Check(principal *entity.Principal, action workflow.Action, doc DocumentContext) error {
	if principal == nil || principal.ProjectID != doc.ProjectID {
		return denied(principal, action, doc, ReasonNotProjectMember)
	}

	rule, ok := g.definition.Rule(doc.FromStatus, action)
	if !ok {
		return nil
	}

	if rule.RequiresSignFlag && !principal.CanSign {
		return denied(principal, action, doc, ReasonMissingSignCapability)
	}

	if len(rule.AnyOf) == 0 {
		return nil
	}
	for _, c := range rule.AnyOf {
		if HasCapability(principal.ProjectRole, c) {
			return nil
		}
	}

	return denied(principal, action, doc, ReasonInsufficientRole)
}

func denied(principal *entity.Principal, action workflow.Action, doc DocumentContext, reason Reason) *DeniedError {
	e := &DeniedError{
		Reason:    reason,
		ProjectID: doc.ProjectID,
		Action:    action,
	}
	if principal != nil {
		e.UserID = principal.UserID
	}
	return e
}
