package socialauth

import "errors"

// Flow errors. All of them collapse to the same uniform failure outcome at the
// orchestration boundary; they stay distinguishable for logging only.
var (
	ErrInvalidProvider       = errors.New("provider is not in the configured allow-list")
	ErrInvalidHandshakeState = errors.New("invalid or expired handshake state")
	ErrIdentityNotResolved   = errors.New("external identity does not resolve to a local account")
	ErrLinkPersistence       = errors.New("failed to persist identity link")
	ErrSessionNotEstablished = errors.New("session guard reports no authenticated principal")
	ErrUnverifiedEmail       = errors.New("email not verified by provider")
)

// Store errors returned by persistence collaborators.
var (
	ErrLinkNotFound    = errors.New("identity link not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoProviderLink  = errors.New("no link for provider on this account")
)

// Handshake state store errors.
var (
	ErrStateNotFound = errors.New("handshake state not found or already consumed")
)
