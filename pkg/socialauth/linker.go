package socialauth

import (
	"context"
	"fmt"
)

// AccountLinker durably records the external-identity-to-account association
// and finalizes the session. The upsert is delegated to the store so the
// write is atomic at the persistence layer; two near-simultaneous callbacks
// for the same (provider, subjectId) pair cannot create two link rows.
type AccountLinker struct {
	store LinkStore
}

// NewAccountLinker creates a linker backed by store.
func NewAccountLinker(store LinkStore) *AccountLinker {
	return &AccountLinker{store: store}
}

// LinkAndLogin upserts the link keyed by (provider, subjectId), creating it
// pointing at account or refreshing the stored token when it already exists,
// then establishes the session via guard. The owning account of an existing
// link is never reassigned; the session is established for the owner the
// store reports back, so an attempt that lost a concurrent first-link race
// logs in on the winner's account, never on an orphan. The owner is returned.
//
// A successful write followed by a failed session establishment is a failed
// login: callers must treat "linked but not logged in" as a failure requiring
// the user to retry, never as success.
func (l *AccountLinker) LinkAndLogin(ctx context.Context, identity ExternalIdentity, account AccountRef, guard SessionGuard) (AccountRef, error) {
	owner, err := l.store.UpsertLink(ctx, identity.Provider, identity.SubjectID, account, identity.DisplayToken)
	if err != nil {
		return AccountRef{}, fmt.Errorf("%w: %w", ErrLinkPersistence, err)
	}

	if err := guard.Login(ctx, owner); err != nil {
		return AccountRef{}, fmt.Errorf("%w: %w", ErrSessionNotEstablished, err)
	}

	if !guard.Check(ctx) {
		return AccountRef{}, ErrSessionNotEstablished
	}

	return owner, nil
}
