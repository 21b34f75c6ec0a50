package content

import (
	"context"
	"sort"
	"sync"

	"beacon/internal/notify/models"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// UserRecord is the slice of the host's user directory the engine cares
// about: activity state and role membership.
type UserRecord struct {
	ID     id.UserID
	Active bool
	Roles  []string
}

// InMemoryStore is a snapshot and user directory held in process memory.
// Production deployments implement ports.ContentStore against the host CMS;
// this store backs tests and self-contained setups.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[id.EntityID]models.ContentSnapshot
	users     map[id.UserID]UserRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		snapshots: make(map[id.EntityID]models.ContentSnapshot),
		users:     make(map[id.UserID]UserRecord),
	}
}

// PutSnapshot upserts a snapshot into the directory.
func (s *InMemoryStore) PutSnapshot(snap models.ContentSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.EntityID] = snap
}

// PutUser upserts a user record.
func (s *InMemoryStore) PutUser(user UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *InMemoryStore) Load(_ context.Context, entityID id.EntityID) (*models.ContentSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.snapshots[entityID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := snap
	return &out, nil
}

func (s *InMemoryStore) QueryActiveUsers(_ context.Context, exclude map[id.UserID]struct{}, offset, limit int) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]id.UserID, 0, len(s.users))
	for userID, record := range s.users {
		if !record.Active {
			continue
		}
		if _, skip := exclude[userID]; skip {
			continue
		}
		all = append(all, userID)
	}
	// Deterministic paging order.
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *InMemoryStore) QueryUsersByRole(_ context.Context, roles []string) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		wanted[r] = struct{}{}
	}

	var out []id.UserID
	for userID, record := range s.users {
		if !record.Active {
			continue
		}
		for _, role := range record.Roles {
			if _, ok := wanted[role]; ok {
				out = append(out, userID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
