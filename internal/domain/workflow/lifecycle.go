package workflow

import "sync"

// lifecycle is built on first use; Definition is immutable so sharing is safe
var lifecycle = sync.OnceValue(buildDocumentLifecycle)

// DocumentLifecycle returns the authoritative document transition table
func DocumentLifecycle() *Definition {
	return lifecycle()
}

// Evaluate applies the document lifecycle table to (from, action)
func Evaluate(from Status, action Action) (Status, error) {
	return lifecycle().Evaluate(from, action)
}

func buildDocumentLifecycle() *Definition {
	builder := NewBuilder()

	builder.Configure(StatusNone).
		Permit(ActionCreate, StatusDraft, CapabilityAuthor)

	builder.Configure(StatusDraft).
		Permit(ActionSubmit, StatusInReview, CapabilityAuthor, CapabilityEditor)

	builder.Configure(StatusInReview).
		Permit(ActionApprove, StatusPendingSignature, CapabilityReviewer).
		Permit(ActionReject, StatusRejected, CapabilityReviewer)

	builder.Configure(StatusPendingSignature).
		PermitSigned(ActionSign, StatusSigned, CapabilitySigner).
		Permit(ActionReject, StatusRejected, CapabilitySigner)

	builder.Configure(StatusRejected).
		Permit(ActionRevise, StatusDraft, CapabilityAuthor)

	builder.Configure(StatusSigned).
		Permit(ActionArchive, StatusArchived, CapabilityAdmin)

	// ARCHIVED is terminal. REVIEW has no row anywhere.

	return builder.Definition()
}
