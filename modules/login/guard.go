package login

import (
	"context"
	"net/http"

	"github.com/creatvstudio/socialauth/pkg/session"
	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

// requestGuard adapts the session manager to the flow's SessionGuard
// contract for the lifetime of one request. The just-established session is
// kept locally so the post-login check can see it before the response cookie
// ever reaches the client.
type requestGuard struct {
	sessions *session.Manager
	w        http.ResponseWriter
	r        *http.Request
	current  *session.Session
}

func newRequestGuard(sessions *session.Manager, w http.ResponseWriter, r *http.Request) *requestGuard {
	return &requestGuard{sessions: sessions, w: w, r: r}
}

func (g *requestGuard) Login(ctx context.Context, account socialauth.AccountRef) error {
	s, err := g.sessions.Login(ctx, g.w, g.r, account.ID, account.Type)
	if err != nil {
		return err
	}
	g.current = s
	return nil
}

func (g *requestGuard) Principal(ctx context.Context) (socialauth.AccountRef, bool) {
	if g.current.IsAuthenticated() {
		return socialauth.AccountRef{ID: g.current.AccountID, Type: g.current.AccountType}, true
	}

	s, err := g.sessions.Get(ctx, g.r)
	if err != nil || !s.IsAuthenticated() {
		return socialauth.AccountRef{}, false
	}
	return socialauth.AccountRef{ID: s.AccountID, Type: s.AccountType}, true
}

func (g *requestGuard) Check(ctx context.Context) bool {
	_, ok := g.Principal(ctx)
	return ok
}

var _ socialauth.SessionGuard = (*requestGuard)(nil)
