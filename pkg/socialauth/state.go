package socialauth

import (
	"context"
	"sync"
	"time"
)

// MemoryStateStore is an in-memory StateStore for single-process deployments
// and tests, with optional background cleanup of abandoned states.
// Multi-instance deployments should use the redis-backed store so a callback
// can land on any instance.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ticker *time.Ticker
	done   chan struct{}
}

// NewMemoryStateStore creates an in-memory state store. A positive
// cleanupInterval starts a background sweep of expired states, so abandoned
// login attempts do not accumulate; call Close to stop it.
func NewMemoryStateStore(cleanupInterval time.Duration) *MemoryStateStore {
	store := &MemoryStateStore{
		states: make(map[string]time.Time),
		done:   make(chan struct{}),
	}
	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}
	return store
}

// Store records state until expiresAt.
func (s *MemoryStateStore) Store(ctx context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = expiresAt
	return nil
}

// Consume removes state, returning ErrStateNotFound when it is unknown,
// expired, or already consumed. Check and delete happen under one lock so a
// replayed callback cannot consume the same state twice.
func (s *MemoryStateStore) Consume(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return ErrStateNotFound
	}
	delete(s.states, state)

	if time.Now().After(expiresAt) {
		return ErrStateNotFound
	}
	return nil
}

// DeleteExpired removes every expired state.
func (s *MemoryStateStore) DeleteExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for state, expiresAt := range s.states {
		if now.After(expiresAt) {
			delete(s.states, state)
		}
	}
	return nil
}

// Close stops the background cleanup loop.
func (s *MemoryStateStore) Close() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

func (s *MemoryStateStore) cleanupLoop() {
	for {
		select {
		case <-s.ticker.C:
			_ = s.DeleteExpired(context.Background())
		case <-s.done:
			return
		}
	}
}

var _ StateStore = (*MemoryStateStore)(nil)
