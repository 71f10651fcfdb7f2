package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by producers and consumers
const (
	KeyTransitionID   = "transition_id"
	KeySequenceNumber = "sequence_number"
	KeyFromStatus     = "from_status"
	KeyToStatus       = "to_status"
	KeyAction         = "action"
	KeyPerformedBy    = "performed_by"
	KeyComment        = "comment"
	KeyDocumentType   = "document_type"
	KeyRejectedAt     = "rejected_at"
)

// Event is a side-effect intent declared by the workflow. Consumers act on it;
// the workflow itself never does.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	DocumentID    string                 `json:"document_id"`
	ProjectID     string                 `json:"project_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new intent with generated ID and timestamp
func NewEvent(eventType Type, documentID, projectID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		DocumentID:    documentID,
		ProjectID:     projectID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewEventWithCorrelation creates an intent linked to a correlation chain
func NewEventWithCorrelation(eventType Type, documentID, projectID string, payload map[string]interface{}, correlationID string) *Event {
	e := NewEvent(eventType, documentID, projectID, payload)
	e.CorrelationID = correlationID
	return e
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
