package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/notify/models"
	"beacon/internal/platform/metrics"
	"beacon/internal/platform/middleware"
	"beacon/pkg/platform/httputil"
	"beacon/pkg/requestcontext"
)

// Service defines the interface for event ingestion operations.
type Service interface {
	ContentCreated(ctx context.Context, snap models.ContentSnapshot) (*models.NotificationEvent, error)
	ContentUpdated(ctx context.Context, tr models.RevisionTransition) (*models.NotificationEvent, error)
	CommentCreated(ctx context.Context, comment models.ContentSnapshot) (*models.NotificationEvent, error)
	UserRegistered(ctx context.Context, user models.ContentSnapshot) (*models.NotificationEvent, error)
}

// Handler wires event ingestion endpoints to the notify service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs an event handler with its dependencies.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts event endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events/content/created", h.HandleContentCreated)
	r.Post("/events/content/updated", h.HandleContentUpdated)
	r.Post("/events/comment/created", h.HandleCommentCreated)
	r.Post("/events/user/registered", h.HandleUserRegistered)
}

// HandleContentCreated handles POST /events/content/created requests.
func (h *Handler) HandleContentCreated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ContentCreatedRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.metrics.IncEventsIngested("content_created")
	event, err := h.service.ContentCreated(ctx, req.Parsed())
	h.respond(w, r, "content_created", start, event, err)
}

// HandleContentUpdated handles POST /events/content/updated requests.
func (h *Handler) HandleContentUpdated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ContentUpdatedRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.metrics.IncEventsIngested("content_updated")
	event, err := h.service.ContentUpdated(ctx, req.Parsed())
	h.respond(w, r, "content_updated", start, event, err)
}

// HandleCommentCreated handles POST /events/comment/created requests.
//
// An unresolvable comment subject is reported as 404; the host treats it as
// recoverable and moves on.
func (h *Handler) HandleCommentCreated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CommentCreatedRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.metrics.IncEventsIngested("comment_created")
	event, err := h.service.CommentCreated(ctx, req.Parsed())
	h.respond(w, r, "comment_created", start, event, err)
}

// HandleUserRegistered handles POST /events/user/registered requests.
func (h *Handler) HandleUserRegistered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[UserRegisteredRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.metrics.IncEventsIngested("user_registered")
	event, err := h.service.UserRegistered(ctx, req.Parsed())
	h.respond(w, r, "user_registered", start, event, err)
}

// respond writes the shared outcome shape: 200 with the event summary when a
// notification was emitted, 204 when the rules suppressed it.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, kind string, start time.Time, event *models.NotificationEvent, err error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err != nil {
		h.logger.ErrorContext(ctx, "event handling failed",
			"request_id", requestID,
			"kind", kind,
			"caller", middleware.GetCaller(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if event == nil {
		h.logger.InfoContext(ctx, "event suppressed",
			"request_id", requestID,
			"kind", kind,
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.InfoContext(ctx, "event handled",
		"request_id", requestID,
		"kind", kind,
		"template", string(event.Template),
		"entity_id", event.SubjectEntityID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvent(event))
}

// HandleHealthz reports liveness.
func HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
