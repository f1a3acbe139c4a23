package socialauth

import "time"

// ExternalIdentity is a verified identity assertion produced by a provider
// handshake. It lives for a single login attempt and is never persisted as-is.
type ExternalIdentity struct {
	// Provider identifies the issuing provider, e.g. "github". Must be a
	// member of the configured allow-list before the identity reaches the
	// resolver.
	Provider string

	// SubjectID is the provider-assigned unique user id. (Provider, SubjectID)
	// is the canonical external identity key.
	SubjectID string

	// Email is optional; used as a fallback lookup when no link exists yet.
	Email string

	// EmailVerified reports whether the provider vouches for the email.
	EmailVerified bool

	// DisplayToken is an opaque provider token stored verbatim on the link.
	DisplayToken string

	// Optional display attributes, passed through to account creation.
	Name      string
	AvatarURL string
}

// AccountRef is an opaque reference to a local account owned by the embedding
// application. Type is the polymorphic owner tag stored alongside the id in
// the link table; an empty Type means the store's configured default.
type AccountRef struct {
	ID   string
	Type string
}

// IsZero reports whether the reference points at nothing.
func (r AccountRef) IsZero() bool {
	return r.ID == ""
}

// IdentityLink is the persistent association between an external identity and
// a local account. Created on the first successful link of a (provider,
// subjectId) pair; its token is overwritten on every later login with the
// same pair. The owning account is never reassigned once created, and the
// core never deletes links as part of a login.
type IdentityLink struct {
	Provider     string
	SubjectID    string
	LinkableType string
	LinkableID   string
	Token        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account returns the owner of the link as an AccountRef.
func (l *IdentityLink) Account() AccountRef {
	return AccountRef{ID: l.LinkableID, Type: l.LinkableType}
}
