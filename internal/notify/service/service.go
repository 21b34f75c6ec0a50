// Package service executes engine decisions against the collaborators: it
// persists message records, hands events to delivery, schedules the
// auto-subscribe fan-out, and keeps stored publish flags in sync. Event
// handling is atomic from the caller's view: a collaborator failure surfaces
// as an error and nothing is retried here.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"beacon/internal/notify/engine"
	"beacon/internal/notify/metrics"
	"beacon/internal/notify/models"
	"beacon/internal/notify/ports"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/requestcontext"
)

type Service struct {
	engine   *engine.Engine
	content  ports.ContentStore
	messages ports.MessageStore
	delivery ports.DeliveryService
	queue    ports.SubscribeQueue
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSubscribeQueue(queue ports.SubscribeQueue) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

func New(eng *engine.Engine, content ports.ContentStore, messages ports.MessageStore, delivery ports.DeliveryService, opts ...Option) (*Service, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if content == nil {
		return nil, errors.New("content store is required")
	}
	if messages == nil {
		return nil, errors.New("message store is required")
	}
	if delivery == nil {
		return nil, errors.New("delivery service is required")
	}

	svc := &Service{
		engine:   eng,
		content:  content,
		messages: messages,
		delivery: delivery,
		logger:   slog.Default(),
		tracer:   otel.Tracer("beacon/notify"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ContentCreated handles a brand-new content entity.
func (s *Service) ContentCreated(ctx context.Context, snap models.ContentSnapshot) (*models.NotificationEvent, error) {
	ctx, span := s.tracer.Start(ctx, "notify.ContentCreated")
	defer span.End()

	decision := s.engine.ContentCreated(snap)
	return s.execute(ctx, decision, nil)
}

// ContentUpdated handles a revision transition for an existing entity.
func (s *Service) ContentUpdated(ctx context.Context, tr models.RevisionTransition) (*models.NotificationEvent, error) {
	ctx, span := s.tracer.Start(ctx, "notify.ContentUpdated")
	defer span.End()

	decision, err := s.engine.ContentUpdated(tr)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, decision, nil)
}

// CommentCreated resolves the parent content entity and handles a new
// comment. A missing parent is the recoverable SubjectResolutionFailed
// condition: the caller logs and continues.
func (s *Service) CommentCreated(ctx context.Context, comment models.ContentSnapshot) (*models.NotificationEvent, error) {
	ctx, span := s.tracer.Start(ctx, "notify.CommentCreated")
	defer span.End()

	if comment.ParentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "comment snapshot carries no parent entity id")
	}

	parent, err := s.content.Load(ctx, comment.ParentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "comment subject could not be resolved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "content store load failed")
	}

	decision := s.engine.CommentCreated(comment, *parent)
	return s.execute(ctx, decision, nil)
}

// UserRegistered handles a new user account. Recipients are resolved from
// the privileged role set rather than the subscriber pool.
func (s *Service) UserRegistered(ctx context.Context, user models.ContentSnapshot) (*models.NotificationEvent, error) {
	ctx, span := s.tracer.Start(ctx, "notify.UserRegistered")
	defer span.End()

	decision := s.engine.UserRegistered(user)

	var recipients []id.UserID
	if decision.Event != nil && decision.Event.Scope == models.ScopeCustomRecipients {
		var err error
		recipients, err = s.content.QueryUsersByRole(ctx, decision.Event.RecipientRoles)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "privileged recipient resolution failed")
		}
	}
	return s.execute(ctx, decision, recipients)
}

// execute runs a decision's side effects in order: mirror sync, message
// record, delivery, fan-out request.
func (s *Service) execute(ctx context.Context, decision engine.Decision, explicitRecipients []id.UserID) (*models.NotificationEvent, error) {
	if decision.Mirror != nil {
		if err := s.syncPublishStatus(ctx, decision.Mirror); err != nil {
			return nil, err
		}
	}

	if decision.Event == nil {
		s.metrics.IncSuppressed()
		s.logger.DebugContext(ctx, "notification suppressed",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, nil
	}

	event := *decision.Event

	messageID, err := s.messages.Create(ctx, event)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "message store create failed")
	}

	if err := s.delivery.Send(ctx, event, explicitRecipients); err != nil {
		// The record exists but delivery failed: at-least-once territory.
		// Downstream deduplicates on (template, subject, revision).
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "delivery send failed")
	}

	if decision.SubscribeAll && s.queue != nil {
		if !s.queue.Enqueue(ports.SubscribeAllRequest{EntityID: event.SubjectEntityID}) {
			s.logger.WarnContext(ctx, "auto-subscription queue full, fan-out skipped",
				"entity_id", event.SubjectEntityID.String(),
			)
		}
	}

	s.metrics.IncEmitted(string(event.Template))
	s.logger.InfoContext(ctx, "notification emitted",
		"template", string(event.Template),
		"entity_id", event.SubjectEntityID.String(),
		"message_id", messageID.String(),
		"published", event.Published,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &event, nil
}

// syncPublishStatus re-flags every stored message record for the subject.
// Idempotent and order-independent: each record converges to the same flag.
func (s *Service) syncPublishStatus(ctx context.Context, mirror *engine.MirrorSync) error {
	messageIDs, err := s.messages.FindBySubject(ctx, mirror.SubjectID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "message store find failed")
	}

	for _, messageID := range messageIDs {
		if err := s.messages.UpdatePublished(ctx, messageID, mirror.Published); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Record vanished between find and update; nothing to sync.
				continue
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "message store update failed")
		}
	}

	s.metrics.AddMirrorUpdates(len(messageIDs))
	return nil
}
