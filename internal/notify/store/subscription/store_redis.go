package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "beacon/pkg/domain"
)

// RedisStore keeps one set per entity. SADD gives the idempotent
// subscribe-if-absent semantic for free.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func subscribersKey(entityID id.EntityID) string {
	return "beacon:subscribers:" + entityID.String()
}

func (s *RedisStore) EnsureSubscribed(ctx context.Context, userID id.UserID, entityID id.EntityID) (bool, error) {
	added, err := s.client.SAdd(ctx, subscribersKey(entityID), userID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("ensure subscribed: %w", err)
	}
	return added > 0, nil
}

func (s *RedisStore) ResolveSubscribers(ctx context.Context, entityID id.EntityID) ([]id.UserID, error) {
	members, err := s.client.SMembers(ctx, subscribersKey(entityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("resolve subscribers: %w", err)
	}

	out := make([]id.UserID, 0, len(members))
	for _, member := range members {
		parsed, err := uuid.Parse(member)
		if err != nil {
			// Skip malformed members rather than failing resolution; they
			// can only appear through out-of-band writes.
			continue
		}
		out = append(out, id.UserID(parsed))
	}
	return out, nil
}
