package socialauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/creatvstudio/socialauth/pkg/sanitizer"
)

// IdentityResolver maps a verified external identity to a local account.
// Resolution is a pure read with strict precedence:
//
//  1. Exact match on (provider, subjectId) against existing links. This makes
//     repeated logins from the same provider account idempotent even when the
//     email changed upstream.
//  2. Lookup by email, when the identity carries one. This lets a user who
//     registered with email/password claim their account via social login
//     without creating a duplicate. The account found here is not linked yet;
//     linking is the AccountLinker's job.
//  3. ErrIdentityNotResolved.
//
// The resolver assumes identity.Provider already passed the provider guard.
type IdentityResolver struct {
	store LinkStore
}

// NewIdentityResolver creates a resolver backed by store.
func NewIdentityResolver(store LinkStore) *IdentityResolver {
	return &IdentityResolver{store: store}
}

// Resolve returns the local account for identity, or ErrIdentityNotResolved
// when neither a link nor an email match exists.
func (r *IdentityResolver) Resolve(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
	link, err := r.store.FindLinkByProviderSubject(ctx, identity.Provider, identity.SubjectID)
	if err == nil {
		return link.Account(), nil
	}
	if !errors.Is(err, ErrLinkNotFound) {
		return AccountRef{}, fmt.Errorf("failed to look up identity link: %w", err)
	}

	if identity.Email == "" {
		return AccountRef{}, ErrIdentityNotResolved
	}

	account, err := r.store.FindAccountByEmail(ctx, sanitizer.NormalizeEmail(identity.Email))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return AccountRef{}, fmt.Errorf("failed to look up account by email: %w", err)
	}

	return AccountRef{}, ErrIdentityNotResolved
}
