package entity

import "time"

// Document is a project document whose lifecycle is tracked by the transition log.
// Status is not stored here; it is the ToStatus of the latest transition.
type Document struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"document_type"`
	ProjectID    string    `json:"project_id"`
	LocationID   *string   `json:"location_id,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Location returns the location id or "" when the document has none
func (d *Document) Location() string {
	if d.LocationID == nil {
		return ""
	}
	return *d.LocationID
}
