// Package domain holds typed identifiers shared across the application.
// Distinct types keep entity, user, and message identifiers from being
// swapped at call sites; the compiler enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// EntityID identifies a trackable entity (content item, comment, user record).
type EntityID uuid.UUID

// UserID identifies an account that can own entities and receive notifications.
type UserID uuid.UUID

// MessageID identifies a persisted notification message record.
type MessageID uuid.UUID

// RevisionID is the opaque, per-entity monotonic revision marker supplied by
// the content management host. Zero means "not set".
type RevisionID int64

func (id EntityID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id MessageID) String() string { return uuid.UUID(id).String() }

func (id EntityID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Used at trust boundaries (HTTP ingest, config).
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseEntityID parses and validates an entity id from its string form.
func ParseEntityID(raw string) (EntityID, error) {
	parsed, err := parseUUID(raw, "entity")
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(parsed), nil
}

// ParseUserID parses and validates a user id from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseMessageID parses and validates a message id from its string form.
func ParseMessageID(raw string) (MessageID, error) {
	parsed, err := parseUUID(raw, "message")
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(parsed), nil
}

// NewMessageID generates a fresh message id.
func NewMessageID() MessageID {
	return MessageID(uuid.New())
}
