package models

import (
	"time"

	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// EntityType names the kind of trackable entity a snapshot describes.
type EntityType string

const (
	EntityContent EntityType = "content"
	EntityComment EntityType = "comment"
	EntityUser    EntityType = "user"
)

// IsValid reports whether the entity type is one of the known kinds.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityContent, EntityComment, EntityUser:
		return true
	}
	return false
}

// Template selects the notification message template downstream renderers use.
type Template string

const (
	TemplateCreateContent  Template = "create_content"
	TemplatePublishContent Template = "publish_content"
	TemplateUpdateContent  Template = "update_content"
	TemplateCreateComment  Template = "create_comment"
	TemplateRegisterUser   Template = "register_user"
)

// SubscriptionScope tells the delivery collaborator how to resolve recipients.
type SubscriptionScope string

const (
	// ScopeAllSubscribers sends to everyone subscribed to the subject entity
	// (or, for comments, to the parent content entity).
	ScopeAllSubscribers SubscriptionScope = "all_subscribers_of_subject"
	// ScopeCustomRecipients sends to an explicit recipient list resolved by
	// the caller, e.g. holders of a privileged role.
	ScopeCustomRecipients SubscriptionScope = "custom_recipient_list"
)

// ContentSnapshot represents one version of a trackable entity at a point in
// time. Snapshots are supplied by the CMS host; the engine never reads storage
// itself.
type ContentSnapshot struct {
	EntityID   id.EntityID
	EntityType EntityType
	Bundle     string
	RevisionID id.RevisionID
	OwnerID    id.UserID
	// ParentID links a comment to the content entity it belongs to. Zero for
	// non-comment snapshots.
	ParentID  id.EntityID
	Published bool
	// TranslationAffected is false when this revision did not change the
	// content of the current language variant. The host may reuse the
	// previous revision id in that case.
	TranslationAffected bool
}

// RevisionTransition pairs the previous and current snapshot of one entity.
// Previous is nil on creation.
type RevisionTransition struct {
	Previous *ContentSnapshot
	Current  ContentSnapshot
}

// Validate enforces the transition invariant: both snapshots must describe
// the same entity.
func (t RevisionTransition) Validate() error {
	if t.Current.EntityID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "current snapshot entity id is required")
	}
	if t.Previous != nil && t.Previous.EntityID != t.Current.EntityID {
		return dErrors.New(dErrors.CodeInvalidInput, "transition snapshots describe different entities")
	}
	return nil
}

// NotificationEvent is the engine's output: what to send, attributed to whom,
// and how recipients should be resolved. The engine never persists or mutates
// it; delivery and storage are collaborator concerns.
type NotificationEvent struct {
	Template          Template
	SubjectEntityID   id.EntityID
	SubjectEntityType EntityType
	OwnerID           id.UserID
	Published         bool

	// OriginalRevisionID and NewRevisionID support diff display. Only set for
	// update and publish templates produced from an update transition; zero
	// otherwise.
	OriginalRevisionID id.RevisionID
	NewRevisionID      id.RevisionID

	Scope SubscriptionScope
	// SubscriberSourceID is the entity whose subscriber list resolves the
	// audience when Scope is ScopeAllSubscribers. For comments this is the
	// parent content entity.
	SubscriberSourceID id.EntityID
	// RecipientRoles names the roles to resolve when Scope is
	// ScopeCustomRecipients.
	RecipientRoles []string
}

// MessageRecord is a persisted mirror of one emitted NotificationEvent. Its
// Published flag tracks the live publish state of the subject entity.
type MessageRecord struct {
	ID        id.MessageID
	Event     NotificationEvent
	Published bool
	CreatedAt time.Time
}
