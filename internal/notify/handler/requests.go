package handler

import (
	"strings"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// SnapshotPayload is the wire form of a content snapshot.
type SnapshotPayload struct {
	EntityID            string `json:"entity_id"`
	EntityType          string `json:"entity_type"`
	Bundle              string `json:"bundle"`
	RevisionID          int64  `json:"revision_id,omitempty"`
	OwnerID             string `json:"owner_id,omitempty"`
	ParentID            string `json:"parent_id,omitempty"`
	Published           bool   `json:"published"`
	TranslationAffected bool   `json:"translation_affected"`
}

func (p *SnapshotPayload) parse(wantType models.EntityType) (models.ContentSnapshot, error) {
	var snap models.ContentSnapshot

	entityID, err := id.ParseEntityID(strings.TrimSpace(p.EntityID))
	if err != nil {
		return snap, err
	}

	entityType := models.EntityType(strings.TrimSpace(p.EntityType))
	if entityType == "" {
		entityType = wantType
	}
	if !entityType.IsValid() {
		return snap, dErrors.New(dErrors.CodeInvalidInput, "unknown entity_type")
	}
	if entityType != wantType {
		return snap, dErrors.New(dErrors.CodeInvalidInput, "entity_type does not match the endpoint")
	}

	snap = models.ContentSnapshot{
		EntityID:            entityID,
		EntityType:          entityType,
		Bundle:              strings.TrimSpace(p.Bundle),
		RevisionID:          id.RevisionID(p.RevisionID),
		Published:           p.Published,
		TranslationAffected: p.TranslationAffected,
	}

	if raw := strings.TrimSpace(p.OwnerID); raw != "" {
		snap.OwnerID, err = id.ParseUserID(raw)
		if err != nil {
			return models.ContentSnapshot{}, err
		}
	}
	if raw := strings.TrimSpace(p.ParentID); raw != "" {
		snap.ParentID, err = id.ParseEntityID(raw)
		if err != nil {
			return models.ContentSnapshot{}, err
		}
	}
	return snap, nil
}

// ContentCreatedRequest is the HTTP request body for POST /events/content/created.
type ContentCreatedRequest struct {
	Snapshot SnapshotPayload `json:"snapshot"`

	parsed models.ContentSnapshot
}

func (r *ContentCreatedRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	snap, err := r.Snapshot.parse(models.EntityContent)
	if err != nil {
		return err
	}
	if snap.Bundle == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "snapshot.bundle is required")
	}
	r.parsed = snap
	return nil
}

// Parsed returns the validated snapshot.
func (r *ContentCreatedRequest) Parsed() models.ContentSnapshot {
	return r.parsed
}

// ContentUpdatedRequest is the HTTP request body for POST /events/content/updated.
// Previous is optional; its absence means the host saw the entity for the
// first time on this save.
type ContentUpdatedRequest struct {
	Previous *SnapshotPayload `json:"previous,omitempty"`
	Current  SnapshotPayload  `json:"current"`

	parsed models.RevisionTransition
}

func (r *ContentUpdatedRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	current, err := r.Current.parse(models.EntityContent)
	if err != nil {
		return err
	}
	if current.Bundle == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "current.bundle is required")
	}

	transition := models.RevisionTransition{Current: current}
	if r.Previous != nil {
		previous, err := r.Previous.parse(models.EntityContent)
		if err != nil {
			return err
		}
		transition.Previous = &previous
	}
	if err := transition.Validate(); err != nil {
		return err
	}
	r.parsed = transition
	return nil
}

// Parsed returns the validated transition.
func (r *ContentUpdatedRequest) Parsed() models.RevisionTransition {
	return r.parsed
}

// CommentCreatedRequest is the HTTP request body for POST /events/comment/created.
type CommentCreatedRequest struct {
	Snapshot SnapshotPayload `json:"snapshot"`

	parsed models.ContentSnapshot
}

func (r *CommentCreatedRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	snap, err := r.Snapshot.parse(models.EntityComment)
	if err != nil {
		return err
	}
	if snap.ParentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "snapshot.parent_id is required for comments")
	}
	r.parsed = snap
	return nil
}

// Parsed returns the validated snapshot.
func (r *CommentCreatedRequest) Parsed() models.ContentSnapshot {
	return r.parsed
}

// UserRegisteredRequest is the HTTP request body for POST /events/user/registered.
type UserRegisteredRequest struct {
	Snapshot SnapshotPayload `json:"snapshot"`

	parsed models.ContentSnapshot
}

func (r *UserRegisteredRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	snap, err := r.Snapshot.parse(models.EntityUser)
	if err != nil {
		return err
	}
	r.parsed = snap
	return nil
}

// Parsed returns the validated snapshot.
func (r *UserRegisteredRequest) Parsed() models.ContentSnapshot {
	return r.parsed
}
