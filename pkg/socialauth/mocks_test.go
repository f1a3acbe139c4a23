package socialauth

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockLinkStore is a mock implementation of LinkStore.
type MockLinkStore struct {
	mock.Mock
}

func (m *MockLinkStore) FindLinkByProviderSubject(ctx context.Context, provider, subjectID string) (*IdentityLink, error) {
	args := m.Called(ctx, provider, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IdentityLink), args.Error(1)
}

func (m *MockLinkStore) UpsertLink(ctx context.Context, provider, subjectID string, account AccountRef, token string) (AccountRef, error) {
	args := m.Called(ctx, provider, subjectID, account, token)
	return args.Get(0).(AccountRef), args.Error(1)
}

func (m *MockLinkStore) FindAccountByEmail(ctx context.Context, email string) (AccountRef, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(AccountRef), args.Error(1)
}

func (m *MockLinkStore) RemoveLink(ctx context.Context, account AccountRef, provider string) error {
	args := m.Called(ctx, account, provider)
	return args.Error(0)
}

// MockSessionGuard is a mock implementation of SessionGuard.
type MockSessionGuard struct {
	mock.Mock
}

func (m *MockSessionGuard) Login(ctx context.Context, account AccountRef) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockSessionGuard) Principal(ctx context.Context) (AccountRef, bool) {
	args := m.Called(ctx)
	return args.Get(0).(AccountRef), args.Bool(1)
}

func (m *MockSessionGuard) Check(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// MockHandshakeAdapter is a mock implementation of HandshakeAdapter.
type MockHandshakeAdapter struct {
	mock.Mock
	provider string
}

func (m *MockHandshakeAdapter) Provider() string {
	return m.provider
}

func (m *MockHandshakeAdapter) AuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockHandshakeAdapter) ResolveIdentity(ctx context.Context, code string) (ExternalIdentity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(ExternalIdentity), args.Error(1)
}

// MockStateStore is a mock implementation of StateStore.
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Store(ctx context.Context, state string, expiresAt time.Time) error {
	args := m.Called(ctx, state, expiresAt)
	return args.Error(0)
}

func (m *MockStateStore) Consume(ctx context.Context, state string) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockAccountCreator is a mock implementation of AccountCreator.
type MockAccountCreator struct {
	mock.Mock
}

func (m *MockAccountCreator) Create(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(AccountRef), args.Error(1)
}

// fakeSessionGuard is a stateful guard for end-to-end flow tests.
type fakeSessionGuard struct {
	account  AccountRef
	loggedIn bool
	loginErr error
}

func (g *fakeSessionGuard) Login(ctx context.Context, account AccountRef) error {
	if g.loginErr != nil {
		return g.loginErr
	}
	g.account = account
	g.loggedIn = true
	return nil
}

func (g *fakeSessionGuard) Principal(ctx context.Context) (AccountRef, bool) {
	return g.account, g.loggedIn
}

func (g *fakeSessionGuard) Check(ctx context.Context) bool {
	return g.loggedIn
}
