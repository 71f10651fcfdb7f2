package authz

import (
	"errors"
	"testing"

	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/workflow"
)

func member(role entity.ProjectRole, canSign bool) *entity.Principal {
	return &entity.Principal{
		UserID:      "u-" + string(role),
		ProjectID:   "proj-1",
		ProjectRole: role,
		CanSign:     canSign,
	}
}

func docAt(status workflow.Status) DocumentContext {
	return DocumentContext{DocumentID: "doc-1", ProjectID: "proj-1", FromStatus: status}
}

func TestGate_Check(t *testing.T) {
	gate := NewGate(nil)

	tests := []struct {
		name      string
		principal *entity.Principal
		action    workflow.Action
		from      workflow.Status
		want      Reason
	}{
		{"author creates", member(entity.RoleAuthor, false), workflow.ActionCreate, workflow.StatusNone, ""},
		{"reviewer cannot create", member(entity.RoleReviewer, false), workflow.ActionCreate, workflow.StatusNone, ReasonInsufficientRole},
		{"author submits", member(entity.RoleAuthor, false), workflow.ActionSubmit, workflow.StatusDraft, ""},
		{"editor submits", member(entity.RoleEditor, false), workflow.ActionSubmit, workflow.StatusDraft, ""},
		{"signer cannot submit", member(entity.RoleSigner, true), workflow.ActionSubmit, workflow.StatusDraft, ReasonInsufficientRole},
		{"reviewer approves", member(entity.RoleReviewer, false), workflow.ActionApprove, workflow.StatusInReview, ""},
		{"author cannot approve", member(entity.RoleAuthor, false), workflow.ActionApprove, workflow.StatusInReview, ReasonInsufficientRole},
		{"reviewer rejects in review", member(entity.RoleReviewer, false), workflow.ActionReject, workflow.StatusInReview, ""},
		{"reviewer cannot reject at signature", member(entity.RoleReviewer, false), workflow.ActionReject, workflow.StatusPendingSignature, ReasonInsufficientRole},
		{"signer rejects at signature", member(entity.RoleSigner, false), workflow.ActionReject, workflow.StatusPendingSignature, ""},
		{"signer with flag signs", member(entity.RoleSigner, true), workflow.ActionSign, workflow.StatusPendingSignature, ""},
		{"signer without flag", member(entity.RoleSigner, false), workflow.ActionSign, workflow.StatusPendingSignature, ReasonMissingSignCapability},
		{"reviewer without flag", member(entity.RoleReviewer, false), workflow.ActionSign, workflow.StatusPendingSignature, ReasonMissingSignCapability},
		{"reviewer with flag lacks role", member(entity.RoleReviewer, true), workflow.ActionSign, workflow.StatusPendingSignature, ReasonInsufficientRole},
		{"author revises", member(entity.RoleAuthor, false), workflow.ActionRevise, workflow.StatusRejected, ""},
		{"admin archives", member(entity.RoleAdmin, false), workflow.ActionArchive, workflow.StatusSigned, ""},
		{"signer cannot archive", member(entity.RoleSigner, true), workflow.ActionArchive, workflow.StatusSigned, ReasonInsufficientRole},
		{"admin signs only with flag", member(entity.RoleAdmin, false), workflow.ActionSign, workflow.StatusPendingSignature, ReasonMissingSignCapability},
		{"pair outside table is deferred", member(entity.RoleEditor, false), workflow.ActionSign, workflow.StatusDraft, ""},
		{"nil principal", nil, workflow.ActionSubmit, workflow.StatusDraft, ReasonNotProjectMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Check(tt.principal, tt.action, docAt(tt.from))

			if tt.want == "" {
				if err != nil {
					t.Fatalf("Check() error = %v, want allowed", err)
				}
				return
			}

			if !errors.Is(err, ErrDenied) {
				t.Fatalf("Check() error = %v, want %v", err, ErrDenied)
			}
			if got := ReasonOf(err); got != tt.want {
				t.Errorf("Check() reason = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_CheckOtherProject(t *testing.T) {
	gate := NewGate(nil)
	p := member(entity.RoleAdmin, true)
	p.ProjectID = "proj-2"

	err := gate.Check(p, workflow.ActionArchive, docAt(workflow.StatusSigned))
	if ReasonOf(err) != ReasonNotProjectMember {
		t.Fatalf("Check() error = %v, want NotProjectMember", err)
	}

	var de *DeniedError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T", err)
	}
	if de.UserID != p.UserID || de.Action != workflow.ActionArchive {
		t.Errorf("DeniedError = %+v", de)
	}
}

func TestCapabilities(t *testing.T) {
	if !HasCapability(entity.RoleAdmin, workflow.CapabilitySigner) {
		t.Error("admin should hold the signer capability")
	}
	if HasCapability(entity.RoleEditor, workflow.CapabilityAuthor) {
		t.Error("editor should not hold the author capability")
	}

	caps := Capabilities(entity.RoleReviewer)
	caps[0] = workflow.CapabilityAdmin
	if HasCapability(entity.RoleReviewer, workflow.CapabilityAdmin) {
		t.Error("Capabilities() should return a copy")
	}

	if len(Capabilities(entity.ProjectRole("GUEST"))) != 0 {
		t.Error("unknown roles grant nothing")
	}
}
