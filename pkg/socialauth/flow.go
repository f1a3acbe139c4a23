package socialauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/creatvstudio/socialauth/pkg/statemachine"
)

// Callback flow states.
const (
	StateAwaitingProvider   = statemachine.StringState("awaiting_provider")
	StateProviderRedirected = statemachine.StringState("provider_redirected")
	StateCallbackReceived   = statemachine.StringState("callback_received")
	StateIdentityVerified   = statemachine.StringState("identity_verified")
	StateAccountResolved    = statemachine.StringState("account_resolved")
	StateLinked             = statemachine.StringState("linked")
	StateFailed             = statemachine.StringState("failed")
)

// Callback flow events.
const (
	eventRedirect = statemachine.StringEvent("redirect")
	eventVerify   = statemachine.StringEvent("verify")
	eventResolve  = statemachine.StringEvent("resolve")
	eventLink     = statemachine.StringEvent("link")
	eventFail     = statemachine.StringEvent("fail")
)

// RegisteredHook observes newly created accounts. It runs after the optional
// AccountCreator minted a local account for a previously unknown identity.
type RegisteredHook func(ctx context.Context, identity ExternalIdentity, account AccountRef) error

// Flow orchestrates a social login from the initial provider redirect to the
// linked, authenticated session. Each login or callback is an independent,
// stateless unit of work; the only shared state is the persistence layer.
//
// Every failure, whatever the stage, produces the same externally observable
// outcome: a redirect to the configured failure path. Nothing about the
// failed stage leaks to the end user; the distinct error kinds exist for the
// embedding application's logs only.
type Flow struct {
	cfg      Config
	guard    *ProviderGuard
	adapters map[string]HandshakeAdapter
	states   StateStore
	resolver *IdentityResolver
	linker   *AccountLinker
	store    LinkStore
	logger   *slog.Logger

	creator        AccountCreator
	creates        singleflight.Group
	registeredHook RegisteredHook
	verifiedOnly   bool
}

// FlowOption configures a Flow during construction.
type FlowOption func(*Flow)

// WithLogger configures the logger used for internal failure reporting.
func WithLogger(l *slog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = l
	}
}

// WithAccountCreator supplies the optional account-creation capability. When
// absent, an identity that resolves to no account fails the login.
func WithAccountCreator(c AccountCreator) FlowOption {
	return func(f *Flow) {
		f.creator = c
	}
}

// WithRegisteredHook registers an observer for newly created accounts. Hook
// errors are logged and do not fail the login.
func WithRegisteredHook(h RegisteredHook) FlowOption {
	return func(f *Flow) {
		f.registeredHook = h
	}
}

// WithVerifiedOnly rejects identities whose email the provider did not verify.
func WithVerifiedOnly(verifiedOnly bool) FlowOption {
	return func(f *Flow) {
		f.verifiedOnly = verifiedOnly
	}
}

// NewFlow constructs a login flow. The provider allow-list comes from cfg;
// an adapter whose provider is not allow-listed is unreachable.
func NewFlow(cfg Config, store LinkStore, states StateStore, adapters []HandshakeAdapter, opts ...FlowOption) *Flow {
	byProvider := make(map[string]HandshakeAdapter, len(adapters))
	for _, a := range adapters {
		byProvider[a.Provider()] = a
	}

	f := &Flow{
		cfg:      cfg.withDefaults(),
		guard:    NewProviderGuard(cfg.Providers),
		adapters: byProvider,
		states:   states,
		resolver: NewIdentityResolver(store),
		linker:   NewAccountLinker(store),
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SuccessPath returns the post-login redirect target.
func (f *Flow) SuccessPath() string { return f.cfg.RedirectPath }

// FailurePath returns the uniform failure redirect target.
func (f *Flow) FailurePath() string { return f.cfg.FailurePath }

// IsValidProvider reports whether provider is allow-listed and has a
// configured handshake adapter.
func (f *Flow) IsValidProvider(provider string) bool {
	if !f.guard.IsValidProvider(provider) {
		return false
	}
	_, ok := f.adapters[provider]
	return ok
}

// Login starts a login attempt and returns the provider authorization URL the
// user should be redirected to. The provider guard runs before anything else;
// an unlisted provider never reaches the handshake adapter.
func (f *Flow) Login(ctx context.Context, provider string) (string, error) {
	if !f.IsValidProvider(provider) {
		return "", ErrInvalidProvider
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := f.states.Store(ctx, state, time.Now().Add(f.cfg.StateTTL)); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	url, err := f.adapters[provider].AuthURL(state)
	if err != nil {
		return "", fmt.Errorf("failed to build auth url: %w", err)
	}
	return url, nil
}

// callbackRun carries a single callback attempt through the state machine.
type callbackRun struct {
	provider string
	code     string
	state    string
	guard    SessionGuard

	identity ExternalIdentity
	account  AccountRef
}

// Callback completes a login attempt from the provider's callback parameters.
// On success the session for the resolved account is established and the
// post-login redirect target is returned. On any failure the returned error
// carries the internal kind for logging; callers must redirect to
// FailurePath regardless of the kind.
func (f *Flow) Callback(ctx context.Context, guard SessionGuard, provider, code, state string) (string, error) {
	if !f.IsValidProvider(provider) {
		f.logFailure(ctx, provider, ErrInvalidProvider)
		return f.cfg.FailurePath, ErrInvalidProvider
	}

	run := &callbackRun{provider: provider, code: code, state: state, guard: guard}
	machine := f.newCallbackMachine()

	for _, event := range []statemachine.StringEvent{eventVerify, eventResolve, eventLink} {
		if err := machine.Fire(ctx, event, run); err != nil {
			_ = machine.Fire(ctx, eventFail, run)
			f.logFailure(ctx, provider, err)
			return f.cfg.FailurePath, err
		}
	}

	return f.cfg.RedirectPath, nil
}

// Unlink removes the link between account and provider. Not part of the login
// flow; exposed for account management by the embedding application.
func (f *Flow) Unlink(ctx context.Context, account AccountRef, provider string) error {
	if err := f.store.RemoveLink(ctx, account, provider); err != nil {
		if errors.Is(err, ErrNoProviderLink) {
			return ErrNoProviderLink
		}
		return fmt.Errorf("failed to unlink %s account: %w", provider, err)
	}
	return nil
}

// newCallbackMachine wires the callback transitions. Every non-terminal state
// may fail; Linked and Failed are terminal.
func (f *Flow) newCallbackMachine() *statemachine.Machine {
	m := statemachine.New(StateCallbackReceived)

	_ = m.AddTransition(StateCallbackReceived, StateIdentityVerified, eventVerify, nil,
		[]statemachine.Action{f.verifyAction})
	_ = m.AddTransition(StateIdentityVerified, StateAccountResolved, eventResolve, nil,
		[]statemachine.Action{f.resolveAction})
	_ = m.AddTransition(StateAccountResolved, StateLinked, eventLink, nil,
		[]statemachine.Action{f.linkAction})

	for _, s := range []statemachine.StringState{StateCallbackReceived, StateIdentityVerified, StateAccountResolved} {
		_ = m.AddTransition(s, StateFailed, eventFail, nil, nil)
	}

	return m
}

// verifyAction consumes the one-time state token and exchanges the code for a
// verified external identity. State consumption happens first so a replayed
// callback fails before any provider round-trip.
func (f *Flow) verifyAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := data.(*callbackRun)

	if err := f.states.Consume(ctx, run.state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return ErrInvalidHandshakeState
		}
		return fmt.Errorf("failed to validate state: %w", err)
	}

	identity, err := f.adapters[run.provider].ResolveIdentity(ctx, run.code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHandshakeState, err)
	}
	if identity.SubjectID == "" {
		return fmt.Errorf("%w: missing subject id", ErrInvalidHandshakeState)
	}
	identity.Provider = run.provider

	if f.verifiedOnly && identity.Email != "" && !identity.EmailVerified {
		return ErrUnverifiedEmail
	}

	run.identity = identity
	return nil
}

// resolveAction maps the identity to a local account, invoking the optional
// account creator when nothing matches. A missing creator turns an unresolved
// identity into a failure.
//
// Creation is guarded twice against concurrent callbacks for the same new
// identity: the per-key singleflight group collapses simultaneous attempts
// into one creation, and the created account is linked inside the flight so a
// later attempt's re-check sees the link before it can mint a second account.
func (f *Flow) resolveAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := data.(*callbackRun)

	account, err := f.resolver.Resolve(ctx, run.identity)
	if err == nil {
		run.account = account
		return nil
	}
	if !errors.Is(err, ErrIdentityNotResolved) {
		return err
	}

	if f.creator == nil {
		return ErrIdentityNotResolved
	}

	key := run.provider + ":" + run.identity.SubjectID
	v, err, _ := f.creates.Do(key, func() (any, error) {
		return f.createAndLink(ctx, run.identity)
	})
	if err != nil {
		return err
	}
	run.account = v.(AccountRef)
	return nil
}

// createAndLink mints a local account for identity and immediately records the
// link, returning the canonical owner. Runs inside the singleflight group.
func (f *Flow) createAndLink(ctx context.Context, identity ExternalIdentity) (AccountRef, error) {
	// Another attempt may have finished between our resolve miss and now.
	if link, err := f.store.FindLinkByProviderSubject(ctx, identity.Provider, identity.SubjectID); err == nil {
		return link.Account(), nil
	}

	account, err := f.creator.Create(ctx, identity)
	if err != nil {
		return AccountRef{}, fmt.Errorf("failed to create account: %w", err)
	}
	if account.IsZero() {
		return AccountRef{}, fmt.Errorf("%w: account creator returned empty reference", ErrIdentityNotResolved)
	}

	owner, err := f.store.UpsertLink(ctx, identity.Provider, identity.SubjectID, account, identity.DisplayToken)
	if err != nil {
		return AccountRef{}, fmt.Errorf("%w: %w", ErrLinkPersistence, err)
	}

	// Fire only when the created account became the link owner; if another
	// instance won the database race the fresh account is abandoned and must
	// not be announced as a registration.
	if f.registeredHook != nil && owner == account {
		hookCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := f.registeredHook(hookCtx, identity, account); err != nil {
			f.logger.Error("registered hook failed",
				slog.String("component", "socialauth"),
				slog.String("provider", identity.Provider),
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
	}

	return owner, nil
}

// linkAction records the link and establishes the session for whichever
// account owns the link after the write.
func (f *Flow) linkAction(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	run := data.(*callbackRun)

	owner, err := f.linker.LinkAndLogin(ctx, run.identity, run.account, run.guard)
	if err != nil {
		return err
	}
	run.account = owner
	return nil
}

func (f *Flow) logFailure(ctx context.Context, provider string, err error) {
	f.logger.WarnContext(ctx, "social login failed",
		slog.String("component", "socialauth"),
		slog.String("provider", provider),
		slog.Any("error", err),
	)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
