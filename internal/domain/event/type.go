package event

// Type identifies the type of side-effect intent
type Type string

const (
	TypeStatusChanged      Type = "document.status_changed"
	TypeDocumentCreated    Type = "document.created"
	TypeReviewRequested    Type = "document.review_requested"
	TypeSignatureRequested Type = "document.signature_requested"
	TypeDocumentRejected   Type = "document.rejected"
	TypeDocumentRevised    Type = "document.revised"
	TypeDocumentSigned     Type = "document.signed"
	TypeDocumentArchived   Type = "document.archived"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeStatusChanged,
		TypeDocumentCreated,
		TypeReviewRequested,
		TypeSignatureRequested,
		TypeDocumentRejected,
		TypeDocumentRevised,
		TypeDocumentSigned,
		TypeDocumentArchived:
		return true
	default:
		return false
	}
}
