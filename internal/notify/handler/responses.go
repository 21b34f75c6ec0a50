package handler

import (
	"beacon/internal/notify/models"
)

// EventResponse is the HTTP response for an ingested event that produced a
// notification.
type EventResponse struct {
	Template           string   `json:"template"`
	SubjectEntityID    string   `json:"subject_entity_id"`
	SubjectEntityType  string   `json:"subject_entity_type"`
	OwnerID            string   `json:"owner_id,omitempty"`
	Published          bool     `json:"published"`
	OriginalRevisionID int64    `json:"original_revision_id,omitempty"`
	NewRevisionID      int64    `json:"new_revision_id,omitempty"`
	Scope              string   `json:"scope"`
	SubscriberSourceID string   `json:"subscriber_source_id,omitempty"`
	RecipientRoles     []string `json:"recipient_roles,omitempty"`
}

// FromEvent converts an emitted event to its HTTP response.
func FromEvent(event *models.NotificationEvent) *EventResponse {
	resp := &EventResponse{
		Template:           string(event.Template),
		SubjectEntityID:    event.SubjectEntityID.String(),
		SubjectEntityType:  string(event.SubjectEntityType),
		Published:          event.Published,
		OriginalRevisionID: int64(event.OriginalRevisionID),
		NewRevisionID:      int64(event.NewRevisionID),
		Scope:              string(event.Scope),
		RecipientRoles:     event.RecipientRoles,
	}
	if !event.OwnerID.IsNil() {
		resp.OwnerID = event.OwnerID.String()
	}
	if !event.SubscriberSourceID.IsNil() {
		resp.SubscriberSourceID = event.SubscriberSourceID.String()
	}
	return resp
}
