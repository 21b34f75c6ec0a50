// Package kafka hands emitted notifications to the transmission pipeline via
// a Kafka topic. The downstream mailer owns rendering and transport; this
// side only guarantees the event reaches the topic, keyed by subject so
// per-entity ordering holds.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"beacon/internal/notify/models"
	"beacon/internal/platform/config"
	id "beacon/pkg/domain"
)

// Publisher implements ports.DeliveryService over a Kafka producer.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// payload is the wire shape consumed by the mailer.
type payload struct {
	Template           string   `json:"template"`
	SubjectEntityID    string   `json:"subject_entity_id"`
	SubjectEntityType  string   `json:"subject_entity_type"`
	OwnerID            string   `json:"owner_id"`
	Published          bool     `json:"published"`
	OriginalRevisionID int64    `json:"original_revision_id,omitempty"`
	NewRevisionID      int64    `json:"new_revision_id,omitempty"`
	Scope              string   `json:"scope"`
	SubscriberSourceID string   `json:"subscriber_source_id,omitempty"`
	RecipientRoles     []string `json:"recipient_roles,omitempty"`
	ExplicitRecipients []string `json:"explicit_recipients,omitempty"`
}

// New connects a producer and makes sure the topic exists.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	_, err := adm.CreateTopic(ctx, 1, -1, nil, topic)
	if err != nil {
		// The topic already existing is the common case after first boot.
		details, derr := adm.ListTopics(ctx, topic)
		if derr == nil && details.Has(topic) {
			return nil
		}
		return fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	return nil
}

// Send publishes the event synchronously. At-least-once: callers must treat
// re-delivery as possible and deduplicate downstream if display requires it.
func (p *Publisher) Send(ctx context.Context, event models.NotificationEvent, explicitRecipients []id.UserID) error {
	body, err := json.Marshal(buildPayload(event, explicitRecipients))
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SubjectEntityID.String()),
		Value: body,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}

	p.logger.DebugContext(ctx, "notification produced",
		"template", string(event.Template),
		"subject", event.SubjectEntityID.String(),
	)
	return nil
}

func buildPayload(event models.NotificationEvent, explicitRecipients []id.UserID) payload {
	out := payload{
		Template:          string(event.Template),
		SubjectEntityID:   event.SubjectEntityID.String(),
		SubjectEntityType: string(event.SubjectEntityType),
		OwnerID:           event.OwnerID.String(),
		Published:         event.Published,
		Scope:             string(event.Scope),
		RecipientRoles:    event.RecipientRoles,
	}
	if event.OriginalRevisionID != 0 || event.NewRevisionID != 0 {
		out.OriginalRevisionID = int64(event.OriginalRevisionID)
		out.NewRevisionID = int64(event.NewRevisionID)
	}
	if !event.SubscriberSourceID.IsNil() {
		out.SubscriberSourceID = event.SubscriberSourceID.String()
	}
	for _, recipient := range explicitRecipients {
		out.ExplicitRecipients = append(out.ExplicitRecipients, recipient.String())
	}
	return out
}

// Close flushes and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
