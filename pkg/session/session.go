// Package session provides the authenticated-session side of the social login
// flow: a cookie-transported session manager with pluggable stores. It is the
// concrete session-guard collaborator the login module adapts per request.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side session. AccountID and AccountType mirror the
// opaque account reference of the owning local account; anonymous sessions
// carry neither.
type Session struct {
	ID          uuid.UUID `json:"id"`
	Token       string    `json:"token"`
	AccountID   string    `json:"account_id,omitempty"`
	AccountType string    `json:"account_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSession mints a session with a fresh id and the given token.
func NewSession(token string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsAuthenticated reports whether the session belongs to an account.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccountID != ""
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}

// generateToken returns a URL-safe random session token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", ErrTokenGeneration
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
