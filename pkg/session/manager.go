package session

import (
	"context"
	"net/http"
)

// Manager handles session lifecycle over an HTTP cookie transport.
type Manager struct {
	store  Store
	config Config
}

// Option configures a Manager during construction.
type Option func(*Manager)

// WithStore sets the session store.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithConfig sets the manager configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// New creates a session manager. Defaults to an in-memory store.
func New(opts ...Option) *Manager {
	m := &Manager{config: DefaultConfig()}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	return m
}

// Login establishes an authenticated session for the account and sets the
// session cookie. Any pre-existing session for the request is destroyed
// first; the token is never reused across the authentication boundary.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, accountID, accountType string) (*Session, error) {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		_ = m.store.Delete(ctx, cookie.Value)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	session := NewSession(token, m.config.TTL)
	session.AccountID = accountID
	session.AccountType = accountType

	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	m.setCookie(w, token)
	return session, nil
}

// Get returns the session for the request's cookie, if any.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, cookie.Value)
}

// Logout destroys the request's session and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		_ = m.store.Delete(ctx, cookie.Value)
	}
	m.clearCookie(w)
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.config.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
