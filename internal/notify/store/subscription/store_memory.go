package subscription

import (
	"context"
	"sync"

	id "beacon/pkg/domain"
)

// InMemoryStore tracks subscriptions in process memory.
type InMemoryStore struct {
	mu sync.RWMutex
	// entity -> set of subscribed users
	subs map[id.EntityID]map[id.UserID]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		subs: make(map[id.EntityID]map[id.UserID]struct{}),
	}
}

func (s *InMemoryStore) EnsureSubscribed(_ context.Context, userID id.UserID, entityID id.EntityID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, exists := s.subs[entityID]
	if !exists {
		set = make(map[id.UserID]struct{})
		s.subs[entityID] = set
	}
	if _, already := set[userID]; already {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (s *InMemoryStore) ResolveSubscribers(_ context.Context, entityID id.EntityID) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.subs[entityID]
	out := make([]id.UserID, 0, len(set))
	for userID := range set {
		out = append(out, userID)
	}
	return out, nil
}
