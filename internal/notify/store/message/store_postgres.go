package message

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/requestcontext"
)

// PostgresStore persists message records in PostgreSQL. Schema provisioning
// lives with the deployment, not here; the store assumes the
// notification_messages table exists.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, event models.NotificationEvent) (id.MessageID, error) {
	messageID := id.NewMessageID()

	query := `
		INSERT INTO notification_messages
			(id, template, subject_entity_id, subject_entity_type, owner_id,
			 published, original_revision_id, new_revision_id, scope,
			 subscriber_source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var source any
	if !event.SubscriberSourceID.IsNil() {
		source = uuid.UUID(event.SubscriberSourceID)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(messageID),
		string(event.Template),
		uuid.UUID(event.SubjectEntityID),
		string(event.SubjectEntityType),
		uuid.UUID(event.OwnerID),
		event.Published,
		int64(event.OriginalRevisionID),
		int64(event.NewRevisionID),
		string(event.Scope),
		source,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return id.MessageID{}, fmt.Errorf("create message record: %w", err)
	}
	return messageID, nil
}

func (s *PostgresStore) FindBySubject(ctx context.Context, entityID id.EntityID) ([]id.MessageID, error) {
	query := `SELECT id FROM notification_messages WHERE subject_entity_id = $1 ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("find messages by subject: %w", err)
	}
	defer rows.Close()

	var out []id.MessageID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		out = append(out, id.MessageID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message ids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePublished(ctx context.Context, messageID id.MessageID, published bool) error {
	query := `UPDATE notification_messages SET published = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, uuid.UUID(messageID), published)
	if err != nil {
		return fmt.Errorf("update message published flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message published flag: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
