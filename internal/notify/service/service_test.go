package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/notify/engine"
	"beacon/internal/notify/models"
	"beacon/internal/notify/ports"
	"beacon/internal/notify/store/content"
	"beacon/internal/notify/store/message"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// fakeDelivery records every send and can be told to fail.
type fakeDelivery struct {
	sent []sentCall
	err  error
}

type sentCall struct {
	event      models.NotificationEvent
	recipients []id.UserID
}

func (f *fakeDelivery) Send(_ context.Context, event models.NotificationEvent, recipients []id.UserID) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCall{event: event, recipients: recipients})
	return nil
}

// fakeQueue records fan-out requests.
type fakeQueue struct {
	reqs []ports.SubscribeAllRequest
	full bool
}

func (f *fakeQueue) Enqueue(req ports.SubscribeAllRequest) bool {
	if f.full {
		return false
	}
	f.reqs = append(f.reqs, req)
	return true
}

// failingMessageStore fails a chosen operation.
type failingMessageStore struct {
	ports.MessageStore
	failCreate bool
	failFind   bool
}

func (f *failingMessageStore) Create(ctx context.Context, event models.NotificationEvent) (id.MessageID, error) {
	if f.failCreate {
		return id.MessageID{}, errors.New("db down")
	}
	return f.MessageStore.Create(ctx, event)
}

func (f *failingMessageStore) FindBySubject(ctx context.Context, entityID id.EntityID) ([]id.MessageID, error) {
	if f.failFind {
		return nil, errors.New("db down")
	}
	return f.MessageStore.FindBySubject(ctx, entityID)
}

type fixture struct {
	svc      *Service
	content  *content.InMemoryStore
	messages *message.InMemoryStore
	delivery *fakeDelivery
	queue    *fakeQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	eng := engine.New(engine.Config{
		TrackedBundles:  []string{"blog", "book_page"},
		PrivilegedRoles: []string{"admin"},
	})
	contentStore := content.NewInMemory()
	messageStore := message.NewInMemory()
	delivery := &fakeDelivery{}
	queue := &fakeQueue{}

	svc, err := New(eng, contentStore, messageStore, delivery,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithSubscribeQueue(queue),
	)
	require.NoError(t, err)

	return &fixture{svc: svc, content: contentStore, messages: messageStore, delivery: delivery, queue: queue}
}

func blogSnapshot(published bool, rev id.RevisionID) models.ContentSnapshot {
	return models.ContentSnapshot{
		EntityID:            id.EntityID(uuid.New()),
		EntityType:          models.EntityContent,
		Bundle:              "blog",
		RevisionID:          rev,
		OwnerID:             id.UserID(uuid.New()),
		Published:           published,
		TranslationAffected: true,
	}
}

func TestContentCreated_EmitsAndFansOut(t *testing.T) {
	f := newFixture(t)
	snap := blogSnapshot(false, 1)

	event, err := f.svc.ContentCreated(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.TemplateCreateContent, event.Template)

	// Message record persisted.
	ids, err := f.messages.FindBySubject(context.Background(), snap.EntityID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Delivered without explicit recipients.
	require.Len(t, f.delivery.sent, 1)
	assert.Nil(t, f.delivery.sent[0].recipients)

	// Fan-out requested for the new entity.
	require.Len(t, f.queue.reqs, 1)
	assert.Equal(t, snap.EntityID, f.queue.reqs[0].EntityID)
}

func TestContentCreated_UntrackedBundleIsSilent(t *testing.T) {
	f := newFixture(t)
	snap := blogSnapshot(true, 1)
	snap.Bundle = "landing_page"

	event, err := f.svc.ContentCreated(context.Background(), snap)
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Empty(t, f.delivery.sent)
	assert.Empty(t, f.queue.reqs)

	ids, err := f.messages.FindBySubject(context.Background(), snap.EntityID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestContentUpdated_PublishSyncsStoredMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A published creation leaves one published message record.
	snap := blogSnapshot(true, 5)
	_, err := f.svc.ContentCreated(ctx, snap)
	require.NoError(t, err)

	// Unpublish with a real new revision: UpdateContent plus mirror sync.
	prev := snap
	cur := snap
	cur.Published = false
	cur.RevisionID = 6

	event, err := f.svc.ContentUpdated(ctx, models.RevisionTransition{Previous: &prev, Current: cur})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.TemplateUpdateContent, event.Template)

	// The pre-existing record was re-flagged by the sync and the new one
	// was recorded against the current flag.
	ids, err := f.messages.FindBySubject(ctx, snap.EntityID)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for _, messageID := range ids {
		record, ok := f.messages.Get(messageID)
		require.True(t, ok)
		assert.False(t, record.Published)
	}
}

func TestContentUpdated_SuppressedSaveTouchesNothing(t *testing.T) {
	f := newFixture(t)
	prev := blogSnapshot(true, 5)
	cur := prev
	cur.TranslationAffected = false

	event, err := f.svc.ContentUpdated(context.Background(), models.RevisionTransition{Previous: &prev, Current: cur})
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Empty(t, f.delivery.sent)
}

func TestCommentCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := blogSnapshot(true, 3)
	f.content.PutSnapshot(parent)

	comment := models.ContentSnapshot{
		EntityID:   id.EntityID(uuid.New()),
		EntityType: models.EntityComment,
		ParentID:   parent.EntityID,
		OwnerID:    id.UserID(uuid.New()),
		Published:  true,
	}

	t.Run("tracked parent emits", func(t *testing.T) {
		event, err := f.svc.CommentCreated(ctx, comment)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, models.TemplateCreateComment, event.Template)
		assert.Equal(t, parent.EntityID, event.SubscriberSourceID)
	})

	t.Run("untracked parent is silent with no side effects", func(t *testing.T) {
		untrackedParent := blogSnapshot(true, 1)
		untrackedParent.Bundle = "landing_page"
		f.content.PutSnapshot(untrackedParent)

		c := comment
		c.EntityID = id.EntityID(uuid.New())
		c.ParentID = untrackedParent.EntityID

		sentBefore := len(f.delivery.sent)
		event, err := f.svc.CommentCreated(ctx, c)
		require.NoError(t, err)
		assert.Nil(t, event)
		assert.Len(t, f.delivery.sent, sentBefore)

		ids, err := f.messages.FindBySubject(ctx, c.EntityID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("unresolvable parent reports not found", func(t *testing.T) {
		c := comment
		c.ParentID = id.EntityID(uuid.New())

		_, err := f.svc.CommentCreated(ctx, c)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing parent id is invalid input", func(t *testing.T) {
		c := comment
		c.ParentID = id.EntityID{}

		_, err := f.svc.CommentCreated(ctx, c)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestUserRegistered_ResolvesPrivilegedRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := id.UserID(uuid.New())
	f.content.PutUser(content.UserRecord{ID: admin, Active: true, Roles: []string{"admin"}})
	f.content.PutUser(content.UserRecord{ID: id.UserID(uuid.New()), Active: true, Roles: []string{"editor"}})

	user := models.ContentSnapshot{
		EntityID:   id.EntityID(uuid.New()),
		EntityType: models.EntityUser,
		Published:  true,
	}

	event, err := f.svc.UserRegistered(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.TemplateRegisterUser, event.Template)
	assert.Equal(t, models.ScopeCustomRecipients, event.Scope)

	require.Len(t, f.delivery.sent, 1)
	assert.Equal(t, []id.UserID{admin}, f.delivery.sent[0].recipients,
		"registration goes to role holders, not the subscriber pool")

	assert.Empty(t, f.queue.reqs, "no auto-subscribe for user registration")
}

func TestCollaboratorFailures_SurfaceAsUnavailable(t *testing.T) {
	t.Run("message store create fails", func(t *testing.T) {
		f := newFixture(t)
		f.svc.messages = &failingMessageStore{MessageStore: f.messages, failCreate: true}

		_, err := f.svc.ContentCreated(context.Background(), blogSnapshot(true, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("delivery fails after record creation", func(t *testing.T) {
		f := newFixture(t)
		f.delivery.err = errors.New("broker down")

		snap := blogSnapshot(true, 1)
		_, err := f.svc.ContentCreated(context.Background(), snap)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

		// At-least-once: the record may exist even though delivery failed.
		ids, findErr := f.messages.FindBySubject(context.Background(), snap.EntityID)
		require.NoError(t, findErr)
		assert.Len(t, ids, 1)
	})

	t.Run("mirror sync find fails", func(t *testing.T) {
		f := newFixture(t)
		f.svc.messages = &failingMessageStore{MessageStore: f.messages, failFind: true}

		prev := blogSnapshot(true, 5)
		cur := prev
		cur.Published = false
		cur.RevisionID = 6

		_, err := f.svc.ContentUpdated(context.Background(), models.RevisionTransition{Previous: &prev, Current: cur})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestQueueFullIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.queue.full = true

	event, err := f.svc.ContentCreated(context.Background(), blogSnapshot(true, 1))
	require.NoError(t, err, "a skipped fan-out must not fail event handling")
	assert.NotNil(t, event)
}
