package socialauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func githubIdentity() ExternalIdentity {
	return ExternalIdentity{
		Provider:      "github",
		SubjectID:     "42",
		Email:         "a@x.com",
		EmailVerified: true,
		DisplayToken:  "gho_token",
	}
}

func newTestFlow(t *testing.T, store LinkStore, adapter *MockHandshakeAdapter, opts ...FlowOption) (*Flow, *MemoryStateStore) {
	t.Helper()

	states := NewMemoryStateStore(0)
	flow := NewFlow(
		Config{Providers: []string{"github", "google"}},
		store, states,
		[]HandshakeAdapter{adapter},
		opts...,
	)
	return flow, states
}

// storedState seeds a consumable state token the way Login would.
func storedState(t *testing.T, states *MemoryStateStore) string {
	t.Helper()

	state, err := generateState()
	require.NoError(t, err)
	require.NoError(t, states.Store(context.Background(), state, time.Now().Add(time.Minute)))
	return state
}

func TestFlow_Login(t *testing.T) {
	t.Parallel()

	t.Run("redirects to provider auth url", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("AuthURL", mock.AnythingOfType("string")).Return("https://github.com/login/oauth/authorize?state=x", nil)

		flow, _ := newTestFlow(t, NewMemoryLinkStore(), adapter)

		url, err := flow.Login(context.Background(), "github")

		require.NoError(t, err)
		assert.Equal(t, "https://github.com/login/oauth/authorize?state=x", url)
		adapter.AssertExpectations(t)
	})

	t.Run("unconfigured provider never reaches the handshake", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		flow, _ := newTestFlow(t, NewMemoryLinkStore(), adapter)

		_, err := flow.Login(context.Background(), "gitlab")

		require.ErrorIs(t, err, ErrInvalidProvider)
		adapter.AssertNotCalled(t, "AuthURL", mock.Anything)
	})

	t.Run("allow-listed provider without adapter is invalid", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		flow, _ := newTestFlow(t, NewMemoryLinkStore(), adapter)

		// "google" is allow-listed but no adapter serves it.
		_, err := flow.Login(context.Background(), "google")

		require.ErrorIs(t, err, ErrInvalidProvider)
	})

	t.Run("generated states are unique", func(t *testing.T) {
		t.Parallel()

		var states []string
		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("AuthURL", mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
			states = append(states, args.String(0))
		}).Return("https://example.com", nil).Twice()

		flow, _ := newTestFlow(t, NewMemoryLinkStore(), adapter)

		_, err := flow.Login(context.Background(), "github")
		require.NoError(t, err)
		_, err = flow.Login(context.Background(), "github")
		require.NoError(t, err)

		require.Len(t, states, 2)
		assert.NotEqual(t, states[0], states[1])
	})
}

func TestFlow_Callback(t *testing.T) {
	t.Parallel()

	t.Run("new user gets account created and linked", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(githubIdentity(), nil)

		creator := &MockAccountCreator{}
		creator.On("Create", mock.Anything, githubIdentity()).Return(AccountRef{ID: "100", Type: "users"}, nil)

		var hookAccount AccountRef
		flow, states := newTestFlow(t, store, adapter,
			WithAccountCreator(creator),
			WithRegisteredHook(func(ctx context.Context, identity ExternalIdentity, account AccountRef) error {
				hookAccount = account
				return nil
			}),
		)

		guard := &fakeSessionGuard{}
		target, err := flow.Callback(context.Background(), guard, "github", "code123", storedState(t, states))

		require.NoError(t, err)
		assert.Equal(t, "/home", target)
		assert.True(t, guard.loggedIn)
		assert.Equal(t, "100", guard.account.ID)
		assert.Equal(t, AccountRef{ID: "100", Type: "users"}, hookAccount)

		link, err := store.FindLinkByProviderSubject(context.Background(), "github", "42")
		require.NoError(t, err)
		assert.Equal(t, "gho_token", link.Token)
		creator.AssertExpectations(t)
	})

	t.Run("returning user resolves directly without creation", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		_, err := store.UpsertLink(context.Background(), "github", "42", AccountRef{ID: "7", Type: "users"}, "old_token")
		require.NoError(t, err)

		identity := githubIdentity()
		identity.DisplayToken = "new_token"

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(identity, nil)

		creator := &MockAccountCreator{}
		flow, states := newTestFlow(t, store, adapter, WithAccountCreator(creator))

		guard := &fakeSessionGuard{}
		target, cbErr := flow.Callback(context.Background(), guard, "github", "code123", storedState(t, states))

		require.NoError(t, cbErr)
		assert.Equal(t, "/home", target)
		assert.Equal(t, "7", guard.account.ID)
		creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

		link, err := store.FindLinkByProviderSubject(context.Background(), "github", "42")
		require.NoError(t, err)
		assert.Equal(t, "new_token", link.Token, "token must refresh on every successful login")
		assert.Equal(t, 1, store.LinkCount())
	})

	t.Run("password user claims account via email", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		store.RegisterAccountEmail("a@x.com", AccountRef{ID: "7", Type: "users"})

		identity := ExternalIdentity{
			Provider:      "google",
			SubjectID:     "99",
			Email:         "a@x.com",
			EmailVerified: true,
			DisplayToken:  "ya29.token",
		}
		adapter := &MockHandshakeAdapter{provider: "google"}
		adapter.On("ResolveIdentity", mock.Anything, "code456").Return(identity, nil)

		creator := &MockAccountCreator{}
		flow, states := newTestFlow(t, store, adapter, WithAccountCreator(creator))

		guard := &fakeSessionGuard{}
		target, err := flow.Callback(context.Background(), guard, "google", "code456", storedState(t, states))

		require.NoError(t, err)
		assert.Equal(t, "/home", target)
		assert.Equal(t, "7", guard.account.ID, "existing account claimed, no duplicate created")
		creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

		link, err := store.FindLinkByProviderSubject(context.Background(), "google", "99")
		require.NoError(t, err)
		assert.Equal(t, "7", link.LinkableID)
	})

	t.Run("expired or replayed state fails without writes", func(t *testing.T) {
		t.Parallel()

		store := &MockLinkStore{}
		adapter := &MockHandshakeAdapter{provider: "github"}
		flow, _ := newTestFlow(t, store, adapter)

		guard := &fakeSessionGuard{}
		target, err := flow.Callback(context.Background(), guard, "github", "code123", "bogus-state")

		require.ErrorIs(t, err, ErrInvalidHandshakeState)
		assert.Equal(t, "/login", target)
		assert.False(t, guard.loggedIn)
		adapter.AssertNotCalled(t, "ResolveIdentity", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "UpsertLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("state is single use", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(githubIdentity(), nil)

		flow, states := newTestFlow(t, store, adapter,
			WithAccountCreator(AccountCreatorFunc(func(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
				return AccountRef{ID: "100", Type: "users"}, nil
			})),
		)

		state := storedState(t, states)

		_, err := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "code123", state)
		require.NoError(t, err)

		// Replaying the same callback must fail on state consumption.
		target, err := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "code123", state)
		require.ErrorIs(t, err, ErrInvalidHandshakeState)
		assert.Equal(t, "/login", target)
	})

	t.Run("unconfigured provider fails before handshake", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		flow, states := newTestFlow(t, NewMemoryLinkStore(), adapter)

		target, err := flow.Callback(context.Background(), &fakeSessionGuard{}, "gitlab", "code", storedState(t, states))

		require.ErrorIs(t, err, ErrInvalidProvider)
		assert.Equal(t, "/login", target)
		adapter.AssertNotCalled(t, "ResolveIdentity", mock.Anything, mock.Anything)
	})

	t.Run("unresolved identity without creator fails", func(t *testing.T) {
		t.Parallel()

		identity := githubIdentity()
		identity.Email = ""

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(identity, nil)

		flow, states := newTestFlow(t, NewMemoryLinkStore(), adapter)

		guard := &fakeSessionGuard{}
		target, err := flow.Callback(context.Background(), guard, "github", "code123", storedState(t, states))

		require.ErrorIs(t, err, ErrIdentityNotResolved)
		assert.Equal(t, "/login", target)
		assert.False(t, guard.loggedIn)
	})

	t.Run("creator failure fails the login", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(githubIdentity(), nil)

		creator := &MockAccountCreator{}
		creator.On("Create", mock.Anything, mock.Anything).Return(AccountRef{}, errors.New("quota exceeded"))

		flow, states := newTestFlow(t, NewMemoryLinkStore(), adapter, WithAccountCreator(creator))

		target, err := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "code123", storedState(t, states))

		require.Error(t, err)
		assert.Equal(t, "/login", target)
	})

	t.Run("session failure after link is a failure", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		_, err := store.UpsertLink(context.Background(), "github", "42", AccountRef{ID: "7", Type: "users"}, "tok")
		require.NoError(t, err)

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(githubIdentity(), nil)

		flow, states := newTestFlow(t, store, adapter)

		guard := &fakeSessionGuard{loginErr: errors.New("session store down")}
		target, err := flow.Callback(context.Background(), guard, "github", "code123", storedState(t, states))

		require.ErrorIs(t, err, ErrSessionNotEstablished)
		assert.Equal(t, "/login", target)
	})

	t.Run("unverified email rejected when verified-only", func(t *testing.T) {
		t.Parallel()

		identity := githubIdentity()
		identity.EmailVerified = false

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, "code123").Return(identity, nil)

		flow, states := newTestFlow(t, NewMemoryLinkStore(), adapter, WithVerifiedOnly(true))

		target, err := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "code123", storedState(t, states))

		require.ErrorIs(t, err, ErrUnverifiedEmail)
		assert.Equal(t, "/login", target)
	})

	t.Run("every failure kind shares one redirect target", func(t *testing.T) {
		t.Parallel()

		adapter := &MockHandshakeAdapter{provider: "github"}
		adapter.On("ResolveIdentity", mock.Anything, mock.Anything).Return(ExternalIdentity{}, errors.New("exchange failed"))

		flow, states := newTestFlow(t, NewMemoryLinkStore(), adapter)

		badProvider, _ := flow.Callback(context.Background(), &fakeSessionGuard{}, "gitlab", "c", "s")
		badState, _ := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "c", "missing")
		badExchange, _ := flow.Callback(context.Background(), &fakeSessionGuard{}, "github", "c", storedState(t, states))

		assert.Equal(t, "/login", badProvider)
		assert.Equal(t, badProvider, badState)
		assert.Equal(t, badProvider, badExchange)
	})
}

func TestFlow_ConcurrentCallbacks(t *testing.T) {
	t.Parallel()

	const attempts = 16

	store := NewMemoryLinkStore()
	adapter := &MockHandshakeAdapter{provider: "github"}
	adapter.On("ResolveIdentity", mock.Anything, mock.AnythingOfType("string")).Return(githubIdentity(), nil)

	// Deliberately not idempotent: every invocation mints a distinct account,
	// so any duplicate creation is visible in the counter and in the refs.
	var created atomic.Int32
	creator := AccountCreatorFunc(func(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
		n := created.Add(1)
		return AccountRef{ID: fmt.Sprintf("acct-%d", n), Type: "users"}, nil
	})

	flow, states := newTestFlow(t, store, adapter, WithAccountCreator(creator))

	accounts := make([]AccountRef, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		state := storedState(t, states)
		wg.Add(1)
		go func(i int, state string) {
			defer wg.Done()
			guard := &fakeSessionGuard{}
			_, _ = flow.Callback(context.Background(), guard, "github", fmt.Sprintf("code-%d", i), state)
			accounts[i] = guard.account
		}(i, state)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "concurrent first logins must create at most one account")
	assert.Equal(t, 1, store.LinkCount(), "concurrent callbacks must not duplicate the link")

	link, err := store.FindLinkByProviderSubject(context.Background(), "github", "42")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", link.LinkableID)

	for i, account := range accounts {
		if account.IsZero() {
			continue // attempt lost the race before login; failure, not duplication
		}
		assert.Equal(t, link.LinkableID, account.ID, "attempt %d logged in on an account the link does not point at", i)
	}
}

func TestFlow_Unlink(t *testing.T) {
	t.Parallel()

	t.Run("removes existing link", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryLinkStore()
		account := AccountRef{ID: "7", Type: "users"}
		_, err := store.UpsertLink(context.Background(), "github", "42", account, "tok")
		require.NoError(t, err)

		flow, _ := newTestFlow(t, store, &MockHandshakeAdapter{provider: "github"})

		require.NoError(t, flow.Unlink(context.Background(), account, "github"))
		assert.Equal(t, 0, store.LinkCount())
	})

	t.Run("missing link", func(t *testing.T) {
		t.Parallel()

		flow, _ := newTestFlow(t, NewMemoryLinkStore(), &MockHandshakeAdapter{provider: "github"})

		err := flow.Unlink(context.Background(), AccountRef{ID: "7", Type: "users"}, "github")
		require.ErrorIs(t, err, ErrNoProviderLink)
	})
}
