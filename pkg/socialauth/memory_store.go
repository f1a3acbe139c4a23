package socialauth

import (
	"context"
	"sync"
	"time"
)

// MemoryLinkStore is an in-memory LinkStore for tests and single-process
// embedding. The upsert is atomic under the store lock, matching the
// unique-constraint semantics the postgres store gets from the database.
type MemoryLinkStore struct {
	mu       sync.Mutex
	links    map[linkKey]*IdentityLink
	accounts map[string]AccountRef // normalized email -> account
}

type linkKey struct {
	provider  string
	subjectID string
}

// NewMemoryLinkStore creates an empty in-memory link store.
func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{
		links:    make(map[linkKey]*IdentityLink),
		accounts: make(map[string]AccountRef),
	}
}

// RegisterAccountEmail makes account discoverable by email lookup. This
// stands in for the embedding application's account table.
func (s *MemoryLinkStore) RegisterAccountEmail(email string, account AccountRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = account
}

// FindLinkByProviderSubject returns a copy of the stored link or
// ErrLinkNotFound.
func (s *MemoryLinkStore) FindLinkByProviderSubject(ctx context.Context, provider, subjectID string) (*IdentityLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkKey{provider: provider, subjectID: subjectID}]
	if !ok {
		return nil, ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

// UpsertLink creates the link or refreshes its token. The owning account of
// an existing link is left untouched and returned so a caller that lost the
// linking race sees the winner.
func (s *MemoryLinkStore) UpsertLink(ctx context.Context, provider, subjectID string, account AccountRef, token string) (AccountRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{provider: provider, subjectID: subjectID}
	now := time.Now()

	if existing, ok := s.links[key]; ok {
		existing.Token = token
		existing.UpdatedAt = now
		return existing.Account(), nil
	}

	s.links[key] = &IdentityLink{
		Provider:     provider,
		SubjectID:    subjectID,
		LinkableType: account.Type,
		LinkableID:   account.ID,
		Token:        token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return account, nil
}

// FindAccountByEmail returns the registered account for email or
// ErrAccountNotFound.
func (s *MemoryLinkStore) FindAccountByEmail(ctx context.Context, email string) (AccountRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[email]
	if !ok {
		return AccountRef{}, ErrAccountNotFound
	}
	return account, nil
}

// RemoveLink deletes the account's link for provider or returns
// ErrNoProviderLink.
func (s *MemoryLinkStore) RemoveLink(ctx context.Context, account AccountRef, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, link := range s.links {
		if key.provider == provider && link.LinkableID == account.ID && link.LinkableType == account.Type {
			delete(s.links, key)
			return nil
		}
	}
	return ErrNoProviderLink
}

// LinkCount reports the number of stored links; used by tests asserting that
// concurrent callbacks never duplicate a link.
func (s *MemoryLinkStore) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}
