package workflow

import (
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	"github.com/garyjia/pto-workflow/internal/domain/event"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// actionIntents maps an action to the intent it declares in addition to
// document.status_changed
var actionIntents = map[domainwf.Action]event.Type{
	domainwf.ActionCreate:  event.TypeDocumentCreated,
	domainwf.ActionSubmit:  event.TypeReviewRequested,
	domainwf.ActionApprove: event.TypeSignatureRequested,
	domainwf.ActionReject:  event.TypeDocumentRejected,
	domainwf.ActionRevise:  event.TypeDocumentRevised,
	domainwf.ActionSign:    event.TypeDocumentSigned,
	domainwf.ActionArchive: event.TypeDocumentArchived,
}

// Intents returns the side-effect intents declared by a recorded transition.
// All intents of one transition share its id as correlation id.
func Intents(doc *entity.Document, tr *entity.Transition) []*event.Event {
	payload := func() map[string]interface{} {
		p := map[string]interface{}{
			event.KeyTransitionID:   tr.ID,
			event.KeySequenceNumber: tr.SequenceNumber,
			event.KeyFromStatus:     tr.FromStatus.String(),
			event.KeyToStatus:       tr.ToStatus.String(),
			event.KeyAction:         tr.Action.String(),
			event.KeyPerformedBy:    tr.PerformedBy,
			event.KeyDocumentType:   doc.DocumentType,
		}
		if tr.Comment != nil {
			p[event.KeyComment] = *tr.Comment
		}
		return p
	}

	intents := []*event.Event{
		event.NewEventWithCorrelation(event.TypeStatusChanged, doc.ID, doc.ProjectID, payload(), tr.ID),
	}

	t, ok := actionIntents[tr.Action]
	if !ok {
		return intents
	}

	specific := event.NewEventWithCorrelation(t, doc.ID, doc.ProjectID, payload(), tr.ID)
	if tr.Action == domainwf.ActionReject {
		specific = specific.WithPayload(event.KeyRejectedAt, tr.FromStatus.String())
	}
	return append(intents, specific)
}
