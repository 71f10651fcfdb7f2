package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "status changed", eventType: TypeStatusChanged, want: true},
		{name: "review requested", eventType: TypeReviewRequested, want: true},
		{name: "signature requested", eventType: TypeSignatureRequested, want: true},
		{name: "signed", eventType: TypeDocumentSigned, want: true},
		{name: "archived", eventType: TypeDocumentArchived, want: true},
		{name: "unknown", eventType: Type("unknown.type"), want: false},
		{name: "empty", eventType: Type(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeDocumentSigned, "doc-1", "proj-1", map[string]interface{}{
		KeyToStatus:       "SIGNED",
		KeySequenceNumber: int64(7),
	})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.CorrelationID != evt.ID {
		t.Error("a fresh event starts its own correlation chain")
	}
	if evt.DocumentID != "doc-1" || evt.ProjectID != "proj-1" {
		t.Errorf("Event ids = %q/%q, want doc-1/proj-1", evt.DocumentID, evt.ProjectID)
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
	if evt.GetPayloadString(KeyToStatus) != "SIGNED" {
		t.Errorf("payload to_status = %q", evt.GetPayloadString(KeyToStatus))
	}
	if evt.GetPayloadInt(KeySequenceNumber) != 7 {
		t.Errorf("payload sequence = %d", evt.GetPayloadInt(KeySequenceNumber))
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	first := NewEvent(TypeStatusChanged, "doc-1", "proj-1", nil)
	second := NewEventWithCorrelation(TypeReviewRequested, "doc-1", "proj-1", nil, first.CorrelationID)

	if second.CorrelationID != first.CorrelationID {
		t.Error("second event should share the correlation id")
	}
	if second.ID == first.ID {
		t.Error("events should have unique IDs even with same correlation ID")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeDocumentCreated, "doc-1", "proj-1", map[string]interface{}{
		"key1": "value1",
	})

	modified := original.WithPayload("key2", "value2")

	if _, exists := original.Payload["key2"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.Payload["key1"] != "value1" || modified.Payload["key2"] != "value2" {
		t.Errorf("Modified payload = %v", modified.Payload)
	}
	if modified.ID != original.ID || modified.DocumentID != original.DocumentID {
		t.Error("Modified event should keep identity fields")
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestEvent_GetPayloadString(t *testing.T) {
	evt := NewEvent(TypeDocumentCreated, "doc-1", "proj-1", map[string]interface{}{
		"status":   "DRAFT",
		"stringer": stringer("IN_REVIEW"),
		"number":   123,
	})

	tests := []struct {
		key  string
		want string
	}{
		{"status", "DRAFT"},
		{"stringer", "IN_REVIEW"},
		{"number", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := evt.GetPayloadString(tt.key); got != tt.want {
				t.Errorf("GetPayloadString(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
