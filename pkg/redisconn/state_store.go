package redisconn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

// StateStore implements socialauth.StateStore on redis. Expiry is delegated
// to key TTLs and consumption uses GETDEL, so the check-and-remove is atomic
// server-side and shared across instances: a callback may land on any node
// and a replayed callback fails everywhere.
type StateStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewStateStore creates a redis-backed handshake state store.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client, keyPrefix: "socialauth:state:"}
}

// Store records the state token until expiresAt.
func (s *StateStore) Store(ctx context.Context, state string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("state expiry %s is in the past", expiresAt)
	}
	if err := s.client.Set(ctx, s.keyPrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	return nil
}

// Consume removes the state token, returning socialauth.ErrStateNotFound when
// it is unknown, expired, or already consumed.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	err := s.client.GetDel(ctx, s.keyPrefix+state).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return socialauth.ErrStateNotFound
		}
		return fmt.Errorf("failed to consume state: %w", err)
	}
	return nil
}

var _ socialauth.StateStore = (*StateStore)(nil)
