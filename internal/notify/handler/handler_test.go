package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// stubService lets each test script the service outcome per method.
type stubService struct {
	contentCreated func(models.ContentSnapshot) (*models.NotificationEvent, error)
	contentUpdated func(models.RevisionTransition) (*models.NotificationEvent, error)
	commentCreated func(models.ContentSnapshot) (*models.NotificationEvent, error)
	userRegistered func(models.ContentSnapshot) (*models.NotificationEvent, error)
}

func (s *stubService) ContentCreated(_ context.Context, snap models.ContentSnapshot) (*models.NotificationEvent, error) {
	return s.contentCreated(snap)
}

func (s *stubService) ContentUpdated(_ context.Context, tr models.RevisionTransition) (*models.NotificationEvent, error) {
	return s.contentUpdated(tr)
}

func (s *stubService) CommentCreated(_ context.Context, snap models.ContentSnapshot) (*models.NotificationEvent, error) {
	return s.commentCreated(snap)
}

func (s *stubService) UserRegistered(_ context.Context, snap models.ContentSnapshot) (*models.NotificationEvent, error) {
	return s.userRegistered(snap)
}

type EventHandlerSuite struct {
	suite.Suite
}

func TestEventHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerSuite))
}

func newTestRouter(t *testing.T, service *stubService) chi.Router {
	t.Helper()
	handler := New(service, slog.New(slog.DiscardHandler), nil)
	r := chi.NewRouter()
	handler.Register(r)
	return r
}

func postJSON(t *testing.T, r chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *EventHandlerSuite) TestContentCreated_Emitted() {
	entityID := id.EntityID(uuid.New())
	ownerID := id.UserID(uuid.New())

	service := &stubService{
		contentCreated: func(snap models.ContentSnapshot) (*models.NotificationEvent, error) {
			s.Equal(entityID, snap.EntityID)
			s.Equal("blog", snap.Bundle)
			s.Equal(id.RevisionID(7), snap.RevisionID)
			return &models.NotificationEvent{
				Template:           models.TemplatePublishContent,
				SubjectEntityID:    snap.EntityID,
				SubjectEntityType:  models.EntityContent,
				OwnerID:            ownerID,
				Published:          true,
				Scope:              models.ScopeAllSubscribers,
				SubscriberSourceID: snap.EntityID,
			}, nil
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/content/created", map[string]any{
		"snapshot": map[string]any{
			"entity_id":            entityID.String(),
			"bundle":               "blog",
			"revision_id":          7,
			"owner_id":             ownerID.String(),
			"published":            true,
			"translation_affected": true,
		},
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp EventResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "publish_content", resp.Template)
	assert.Equal(s.T(), entityID.String(), resp.SubjectEntityID)
	assert.Equal(s.T(), "all_subscribers_of_subject", resp.Scope)
}

func (s *EventHandlerSuite) TestContentCreated_SuppressedIsNoContent() {
	service := &stubService{
		contentCreated: func(models.ContentSnapshot) (*models.NotificationEvent, error) {
			return nil, nil
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/content/created", map[string]any{
		"snapshot": map[string]any{
			"entity_id": uuid.NewString(),
			"bundle":    "landing_page",
		},
	})

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
	assert.Empty(s.T(), w.Body.Bytes())
}

func (s *EventHandlerSuite) TestContentCreated_BadRequests() {
	service := &stubService{
		contentCreated: func(models.ContentSnapshot) (*models.NotificationEvent, error) {
			s.FailNow("service must not be called")
			return nil, nil
		},
	}
	r := newTestRouter(s.T(), service)

	s.Run("invalid json", func() {
		req := httptest.NewRequest(http.MethodPost, "/events/content/created", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("missing entity id", func() {
		w := postJSON(s.T(), r, "/events/content/created", map[string]any{
			"snapshot": map[string]any{"bundle": "blog"},
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("missing bundle", func() {
		w := postJSON(s.T(), r, "/events/content/created", map[string]any{
			"snapshot": map[string]any{"entity_id": uuid.NewString()},
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("entity type mismatch", func() {
		w := postJSON(s.T(), r, "/events/content/created", map[string]any{
			"snapshot": map[string]any{
				"entity_id":   uuid.NewString(),
				"entity_type": "user",
				"bundle":      "blog",
			},
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *EventHandlerSuite) TestContentUpdated_TransitionParsing() {
	entityID := uuid.NewString()

	service := &stubService{
		contentUpdated: func(tr models.RevisionTransition) (*models.NotificationEvent, error) {
			s.Require().NotNil(tr.Previous)
			s.Equal(id.RevisionID(5), tr.Previous.RevisionID)
			s.Equal(id.RevisionID(6), tr.Current.RevisionID)
			return nil, nil
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/content/updated", map[string]any{
		"previous": map[string]any{
			"entity_id":   entityID,
			"bundle":      "blog",
			"revision_id": 5,
			"published":   false,
		},
		"current": map[string]any{
			"entity_id":            entityID,
			"bundle":               "blog",
			"revision_id":          6,
			"published":            true,
			"translation_affected": true,
		},
	})

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *EventHandlerSuite) TestContentUpdated_MismatchedEntitiesRejected() {
	service := &stubService{
		contentUpdated: func(models.RevisionTransition) (*models.NotificationEvent, error) {
			s.FailNow("service must not be called")
			return nil, nil
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/content/updated", map[string]any{
		"previous": map[string]any{"entity_id": uuid.NewString(), "bundle": "blog"},
		"current":  map[string]any{"entity_id": uuid.NewString(), "bundle": "blog"},
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(s.T(), "invalid_input", body["error"])
}

func (s *EventHandlerSuite) TestCommentCreated() {
	parentID := uuid.NewString()

	s.Run("requires parent id", func() {
		service := &stubService{
			commentCreated: func(models.ContentSnapshot) (*models.NotificationEvent, error) {
				s.FailNow("service must not be called")
				return nil, nil
			},
		}
		r := newTestRouter(s.T(), service)
		w := postJSON(s.T(), r, "/events/comment/created", map[string]any{
			"snapshot": map[string]any{"entity_id": uuid.NewString()},
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("unresolvable subject is 404", func() {
		service := &stubService{
			commentCreated: func(models.ContentSnapshot) (*models.NotificationEvent, error) {
				return nil, dErrors.New(dErrors.CodeNotFound, "comment subject could not be resolved")
			},
		}
		r := newTestRouter(s.T(), service)
		w := postJSON(s.T(), r, "/events/comment/created", map[string]any{
			"snapshot": map[string]any{
				"entity_id": uuid.NewString(),
				"parent_id": parentID,
			},
		})
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})

	s.Run("emitted carries subscriber source", func() {
		service := &stubService{
			commentCreated: func(snap models.ContentSnapshot) (*models.NotificationEvent, error) {
				return &models.NotificationEvent{
					Template:           models.TemplateCreateComment,
					SubjectEntityID:    snap.EntityID,
					SubjectEntityType:  models.EntityComment,
					Published:          true,
					Scope:              models.ScopeAllSubscribers,
					SubscriberSourceID: snap.ParentID,
				}, nil
			},
		}
		r := newTestRouter(s.T(), service)
		w := postJSON(s.T(), r, "/events/comment/created", map[string]any{
			"snapshot": map[string]any{
				"entity_id": uuid.NewString(),
				"parent_id": parentID,
				"published": true,
			},
		})
		assert.Equal(s.T(), http.StatusOK, w.Code)
		var resp EventResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), parentID, resp.SubscriberSourceID)
	})
}

func (s *EventHandlerSuite) TestUserRegistered() {
	service := &stubService{
		userRegistered: func(snap models.ContentSnapshot) (*models.NotificationEvent, error) {
			return &models.NotificationEvent{
				Template:          models.TemplateRegisterUser,
				SubjectEntityID:   snap.EntityID,
				SubjectEntityType: models.EntityUser,
				Published:         true,
				Scope:             models.ScopeCustomRecipients,
				RecipientRoles:    []string{"admin"},
			}, nil
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/user/registered", map[string]any{
		"snapshot": map[string]any{
			"entity_id": uuid.NewString(),
			"published": true,
		},
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp EventResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "register_user", resp.Template)
	assert.Equal(s.T(), "custom_recipient_list", resp.Scope)
	assert.Equal(s.T(), []string{"admin"}, resp.RecipientRoles)
}

func (s *EventHandlerSuite) TestServiceFailureMapsToStatus() {
	service := &stubService{
		contentCreated: func(models.ContentSnapshot) (*models.NotificationEvent, error) {
			return nil, dErrors.New(dErrors.CodeUnavailable, "delivery send failed")
		},
	}
	r := newTestRouter(s.T(), service)

	w := postJSON(s.T(), r, "/events/content/created", map[string]any{
		"snapshot": map[string]any{
			"entity_id": uuid.NewString(),
			"bundle":    "blog",
		},
	})

	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
	assert.Contains(s.T(), w.Body.String(), "unavailable")
}

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	HandleHealthz(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
