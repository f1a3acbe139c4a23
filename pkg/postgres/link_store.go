package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

// LinkStore implements socialauth.LinkStore on top of the identity_links
// table. The upsert relies on the table's unique index over
// (provider, subject_id); concurrent callbacks for the same pair collapse
// into one row at the database, not in application code.
//
// Accounts belong to the embedding application. The account-by-email lookup
// is therefore configurable: table, id column, and email column default to
// users/id/email and double as the polymorphic linkable_type tag.
type LinkStore struct {
	pool *pgxpool.Pool

	accountsTable      string
	accountIDColumn    string
	accountEmailColumn string
}

// LinkStoreOption configures a LinkStore.
type LinkStoreOption func(*LinkStore)

// WithAccountsTable points the email lookup at the embedding application's
// account table. The table name is also used as the default linkable type.
func WithAccountsTable(table, idColumn, emailColumn string) LinkStoreOption {
	return func(s *LinkStore) {
		s.accountsTable = table
		s.accountIDColumn = idColumn
		s.accountEmailColumn = emailColumn
	}
}

// NewLinkStore creates a postgres-backed link store.
func NewLinkStore(pool *pgxpool.Pool, opts ...LinkStoreOption) *LinkStore {
	s := &LinkStore{
		pool:               pool,
		accountsTable:      "users",
		accountIDColumn:    "id",
		accountEmailColumn: "email",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindLinkByProviderSubject returns the link for the canonical key or
// socialauth.ErrLinkNotFound.
func (s *LinkStore) FindLinkByProviderSubject(ctx context.Context, provider, subjectID string) (*socialauth.IdentityLink, error) {
	var link socialauth.IdentityLink
	err := s.pool.QueryRow(ctx, `
		SELECT provider, subject_id, linkable_type, linkable_id, token, created_at, updated_at
		FROM identity_links
		WHERE provider = $1 AND subject_id = $2`,
		provider, subjectID,
	).Scan(&link.Provider, &link.SubjectID, &link.LinkableType, &link.LinkableID, &link.Token, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, socialauth.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to query identity link: %w", err)
	}
	return &link, nil
}

// UpsertLink creates the link or refreshes its token in one atomic statement.
// The conflict branch deliberately leaves linkable_type and linkable_id
// untouched: the owner of an existing link is never reassigned. RETURNING
// reads the row after the write, so the caller that lost a concurrent
// first-link race gets the winner's account back.
func (s *LinkStore) UpsertLink(ctx context.Context, provider, subjectID string, account socialauth.AccountRef, token string) (socialauth.AccountRef, error) {
	linkableType := account.Type
	if linkableType == "" {
		linkableType = s.accountsTable
	}

	var owner socialauth.AccountRef
	err := s.pool.QueryRow(ctx, `
		INSERT INTO identity_links (provider, subject_id, linkable_type, linkable_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (provider, subject_id) DO UPDATE SET
			token = EXCLUDED.token,
			updated_at = now()
		RETURNING linkable_type, linkable_id`,
		provider, subjectID, linkableType, account.ID, token,
	).Scan(&owner.Type, &owner.ID)
	if err != nil {
		return socialauth.AccountRef{}, fmt.Errorf("failed to upsert identity link: %w", err)
	}
	return owner, nil
}

// FindAccountByEmail looks up an account reference in the configured account
// table or returns socialauth.ErrAccountNotFound.
func (s *LinkStore) FindAccountByEmail(ctx context.Context, email string) (socialauth.AccountRef, error) {
	var id string
	if err := s.pool.QueryRow(ctx, s.accountByEmailQuery(), email).Scan(&id); err != nil {
		if IsNotFoundError(err) {
			return socialauth.AccountRef{}, socialauth.ErrAccountNotFound
		}
		return socialauth.AccountRef{}, fmt.Errorf("failed to query account by email: %w", err)
	}
	return socialauth.AccountRef{ID: id, Type: s.accountsTable}, nil
}

// accountByEmailQuery builds the lookup against the configured account table.
// The identifiers come from the embedding application, not from user input,
// but they are quoted anyway so an odd table name cannot break the statement.
func (s *LinkStore) accountByEmailQuery() string {
	return fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s = $1`,
		pgx.Identifier{s.accountIDColumn}.Sanitize(),
		pgx.Identifier{s.accountsTable}.Sanitize(),
		pgx.Identifier{s.accountEmailColumn}.Sanitize(),
	)
}

// RemoveLink deletes the account's link for provider or returns
// socialauth.ErrNoProviderLink.
func (s *LinkStore) RemoveLink(ctx context.Context, account socialauth.AccountRef, provider string) error {
	linkableType := account.Type
	if linkableType == "" {
		linkableType = s.accountsTable
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM identity_links
		WHERE provider = $1 AND linkable_type = $2 AND linkable_id = $3`,
		provider, linkableType, account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete identity link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return socialauth.ErrNoProviderLink
	}
	return nil
}

var _ socialauth.LinkStore = (*LinkStore)(nil)
