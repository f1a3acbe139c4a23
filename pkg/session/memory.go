package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with optional background cleanup of
// expired sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ticker   *time.Ticker
	done     chan struct{}
}

// NewMemoryStore creates an in-memory store. A positive cleanupInterval
// starts a background sweep of expired sessions; call Close to stop it.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}
	return store
}

func (m *MemoryStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[token]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, ErrSessionExpired
	}

	copied := *session
	return &copied, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if session.IsExpired() {
			delete(m.sessions, token)
		}
	}
	return nil
}

// Close stops the background cleanup loop.
func (m *MemoryStore) Close() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.done)
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}

var _ Store = (*MemoryStore)(nil)
