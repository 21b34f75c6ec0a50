package message

import (
	"context"
	"sync"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/requestcontext"
)

// InMemoryStore keeps message records in process memory. Used in tests and
// single-node development setups.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[id.MessageID]*models.MessageRecord
	bySubject map[id.EntityID][]id.MessageID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[id.MessageID]*models.MessageRecord),
		bySubject: make(map[id.EntityID][]id.MessageID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, event models.NotificationEvent) (id.MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messageID := id.NewMessageID()
	s.records[messageID] = &models.MessageRecord{
		ID:        messageID,
		Event:     event,
		Published: event.Published,
		CreatedAt: requestcontext.Now(ctx),
	}
	s.bySubject[event.SubjectEntityID] = append(s.bySubject[event.SubjectEntityID], messageID)
	return messageID, nil
}

func (s *InMemoryStore) FindBySubject(_ context.Context, entityID id.EntityID) ([]id.MessageID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySubject[entityID]
	out := make([]id.MessageID, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *InMemoryStore) UpdatePublished(_ context.Context, messageID id.MessageID, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[messageID]
	if !exists {
		return sentinel.ErrNotFound
	}
	record.Published = published
	return nil
}

// Get returns a copy of the stored record. Test helper; not part of the
// MessageStore port.
func (s *InMemoryStore) Get(messageID id.MessageID) (models.MessageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[messageID]
	if !exists {
		return models.MessageRecord{}, false
	}
	return *record, true
}
