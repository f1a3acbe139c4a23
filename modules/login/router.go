// Package login exposes the social login flow over HTTP as a mountable chi
// router. It owns nothing but the transport glue: URL parameters in,
// redirects out. Whatever goes wrong inside the flow, the response is the
// same redirect to the failure path.
package login

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creatvstudio/socialauth/pkg/session"
	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

// Handler serves the login and callback endpoints for every configured
// provider.
type Handler struct {
	flow     *socialauth.Flow
	sessions *session.Manager
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for transport-level failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates the HTTP handler for the social login module.
func NewHandler(flow *socialauth.Flow, sessions *session.Manager, opts ...Option) *Handler {
	h := &Handler{
		flow:     flow,
		sessions: sessions,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts the module's routes:
//
//	GET /{provider}           -> redirect to the provider's authorization URL
//	GET /{provider}/callback  -> complete the login and redirect
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/auth", login.NewHandler(flow, sessions).Router())
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/{provider}", h.handleLogin)
	r.Get("/{provider}/callback", h.handleCallback)
	return r
}

// Handle returns the module as a plain http.Handler for mounting.
func (h *Handler) Handle() http.Handler {
	return h.Router()
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	url, err := h.flow.Login(r.Context(), provider)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login redirect refused",
			slog.String("component", "login"),
			slog.String("provider", provider),
			slog.Any("error", err),
		)
		http.Redirect(w, r, h.flow.FailurePath(), http.StatusFound)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	guard := newRequestGuard(h.sessions, w, r)

	// The flow reports failures through its own logger; the returned target
	// is already the uniform failure path when err is non-nil.
	target, _ := h.flow.Callback(r.Context(), guard, provider, query.Get("code"), query.Get("state"))

	http.Redirect(w, r, target, http.StatusFound)
}
