package socialauth

import (
	"context"
	"time"
)

// LinkStore is the persistence contract for identity links and the
// account-by-email lookup the embedding application exposes to the resolver.
type LinkStore interface {
	// FindLinkByProviderSubject returns the link for the canonical
	// (provider, subjectId) key, or ErrLinkNotFound.
	FindLinkByProviderSubject(ctx context.Context, provider, subjectID string) (*IdentityLink, error)

	// UpsertLink creates the link if the (provider, subjectId) pair is new,
	// otherwise overwrites the stored token. The write must be atomic at the
	// persistence layer (unique-constraint-backed upsert); the owning account
	// of an existing link is never changed. The returned reference is the
	// canonical owner after the write: account for a fresh link, the existing
	// owner when the pair was already linked. Callers that lost a linking race
	// learn the winner from this value.
	UpsertLink(ctx context.Context, provider, subjectID string, account AccountRef, token string) (AccountRef, error)

	// FindAccountByEmail returns the account registered under email, or
	// ErrAccountNotFound. The email is already normalized by the caller.
	FindAccountByEmail(ctx context.Context, email string) (AccountRef, error)

	// RemoveLink deletes the link between account and provider, or returns
	// ErrNoProviderLink. Not part of the login flow; exposed for account
	// management.
	RemoveLink(ctx context.Context, account AccountRef, provider string) error
}

// SessionGuard establishes and queries the authenticated session for the
// current unit of work. Implementations are request-scoped; see
// modules/login for the HTTP adapter.
type SessionGuard interface {
	// Login establishes an authenticated session for account.
	Login(ctx context.Context, account AccountRef) error

	// Principal returns the currently authenticated account, if any.
	Principal(ctx context.Context) (AccountRef, bool)

	// Check reports whether an authenticated principal exists.
	Check(ctx context.Context) bool
}

// HandshakeAdapter wraps a single provider's OAuth handshake. Implementations
// exchange the authorization code and return a verified ExternalIdentity; the
// core never touches the wire protocol.
type HandshakeAdapter interface {
	// Provider returns the provider identifier this adapter serves.
	Provider() string

	// AuthURL builds the provider authorization URL carrying state.
	AuthURL(state string) (string, error)

	// ResolveIdentity exchanges code for a verified external identity.
	ResolveIdentity(ctx context.Context, code string) (ExternalIdentity, error)
}

// StateStore persists one-time handshake state tokens for CSRF protection.
type StateStore interface {
	Store(ctx context.Context, state string, expiresAt time.Time) error

	// Consume atomically checks that state exists and removes it. Returns
	// ErrStateNotFound when the state is unknown, expired, or already
	// consumed. Atomicity closes the window for replayed callbacks.
	Consume(ctx context.Context, state string) error
}

// AccountCreator is the optional account-creation capability the embedding
// application may supply at construction time. When absent, an unresolved
// identity fails the login instead of minting a new account.
type AccountCreator interface {
	Create(ctx context.Context, identity ExternalIdentity) (AccountRef, error)
}

// AccountCreatorFunc adapts a function to the AccountCreator interface.
type AccountCreatorFunc func(ctx context.Context, identity ExternalIdentity) (AccountRef, error)

func (f AccountCreatorFunc) Create(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
	return f(ctx, identity)
}
