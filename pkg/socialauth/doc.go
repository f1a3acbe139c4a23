// Package socialauth implements a reusable OAuth "social login" flow: it
// sends a user to a third-party identity provider, accepts the verified
// identity assertion produced by a handshake adapter, and maps that external
// identity to a local application account, creating one if needed and
// linking to the existing account otherwise.
//
// The heart of the package is the identity-linking logic. Given an inbound
// external identity, the resolver decides whether it corresponds to an
// already-linked account, an account reachable by email, or nothing at all,
// and the linker keeps the external-identity-to-account mapping consistent
// under concurrent logins.
//
// # Architecture
//
// The package orchestrates four collaborators behind explicit interfaces:
//
//   - HandshakeAdapter performs the provider-side OAuth exchange and returns
//     a verified ExternalIdentity. GitHub and Google adapters ship with the
//     package; others plug in the same way.
//   - LinkStore persists identity links and exposes the account-by-email
//     lookup. A postgres implementation lives in pkg/postgres; an in-memory
//     one ships here for tests and single-process use.
//   - SessionGuard establishes and queries the authenticated session. An
//     HTTP-cookie implementation lives in pkg/session with a request-scoped
//     adapter in modules/login.
//   - AccountCreator is optional: when supplied, unknown identities mint a
//     new local account; when absent, they fail the login.
//
// # Resolution order
//
// Resolution applies strict precedence: an exact (provider, subjectId) link
// match wins over an email match, which wins over nothing. The link match
// keeps repeated logins idempotent even when the provider-side email changes;
// the email fallback lets a password-registered user claim their account via
// social login without creating a duplicate.
//
// # Usage
//
//	store := socialauth.NewMemoryLinkStore()
//	states := socialauth.NewMemoryStateStore(time.Minute)
//
//	flow := socialauth.NewFlow(
//		socialauth.Config{Providers: []string{"github"}},
//		store, states,
//		[]socialauth.HandshakeAdapter{socialauth.NewGithubAdapter(githubCfg)},
//		socialauth.WithAccountCreator(creator),
//		socialauth.WithLogger(logger),
//	)
//
//	// Start a login: redirect the user to the returned URL.
//	url, err := flow.Login(ctx, "github")
//
//	// Complete it from the provider callback.
//	target, err := flow.Callback(ctx, guard, "github", code, state)
//
// Every failure, from an unknown provider to a replayed state to session
// trouble, yields the same observable outcome, a
// redirect to the configured failure path, so callers cannot be used as an
// oracle for which stage failed. The error kinds remain distinguishable for
// the embedding application's logs.
package socialauth
