package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a redis-backed Store. Sessions are serialized as JSON and
// expire via redis TTLs, so DeleteExpired is a no-op.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "session:"}
}

func (s *RedisStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+session.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.IsExpired() {
		_ = s.Delete(ctx, token)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; redis evicts sessions via key TTLs.
func (s *RedisStore) DeleteExpired(ctx context.Context) error {
	return nil
}

var _ Store = (*RedisStore)(nil)
