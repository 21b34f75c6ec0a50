// Package ports defines the collaborator interfaces the notification service
// drives. Interfaces live here because multiple packages (service, worker,
// stores, delivery) share them.
package ports

import (
	"context"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
)

// ContentStore is the read surface of the host CMS: snapshot resolution and
// user directory queries.
type ContentStore interface {
	// Load resolves the current snapshot of an entity. Returns
	// sentinel.ErrNotFound (wrapped or bare) when the entity is unknown.
	Load(ctx context.Context, entityID id.EntityID) (*models.ContentSnapshot, error)

	// QueryActiveUsers pages through active, non-excluded users.
	// Returns at most limit ids starting at offset.
	QueryActiveUsers(ctx context.Context, exclude map[id.UserID]struct{}, offset, limit int) ([]id.UserID, error)

	// QueryUsersByRole resolves every user holding at least one of the roles.
	QueryUsersByRole(ctx context.Context, roles []string) ([]id.UserID, error)
}

// SubscriptionService manages which users follow which entities.
type SubscriptionService interface {
	// EnsureSubscribed subscribes the user to the entity if not already
	// subscribed. Idempotent: repeated calls must not error or duplicate.
	// Reports whether a new subscription was created.
	EnsureSubscribed(ctx context.Context, userID id.UserID, entityID id.EntityID) (bool, error)

	// ResolveSubscribers lists every subscriber of the entity.
	ResolveSubscribers(ctx context.Context, entityID id.EntityID) ([]id.UserID, error)
}

// DeliveryService hands a notification to the transmission pipeline.
// Recipient resolution policy (channel forcing, digests) lives behind this
// interface, not in the decision engine.
type DeliveryService interface {
	// Send transmits the event. explicitRecipients overrides subscriber
	// resolution when the event's scope is a custom recipient list.
	Send(ctx context.Context, event models.NotificationEvent, explicitRecipients []id.UserID) error
}

// MessageStore persists one record per emitted notification. Records mirror
// the live publish state of their subject.
type MessageStore interface {
	Create(ctx context.Context, event models.NotificationEvent) (id.MessageID, error)
	FindBySubject(ctx context.Context, entityID id.EntityID) ([]id.MessageID, error)
	UpdatePublished(ctx context.Context, messageID id.MessageID, published bool) error
}

// SubscribeQueue accepts auto-subscription fan-out requests for asynchronous
// execution.
type SubscribeQueue interface {
	// Enqueue schedules a fan-out. Reports false when the queue is full; the
	// caller logs and moves on rather than blocking event handling.
	Enqueue(req SubscribeAllRequest) bool
}

// SubscribeAllRequest asks for every active user to be subscribed to the
// entity.
type SubscribeAllRequest struct {
	EntityID id.EntityID
}
