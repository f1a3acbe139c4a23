// Package account exposes management of an account's provider connections.
// Login and callback handling live in modules/login; this module covers what
// an already authenticated user does with their links afterwards.
package account

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creatvstudio/socialauth/pkg/session"
	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

// Handler serves the connection management endpoints.
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

// NewHandler creates the HTTP handler for the account connections module.
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
//	DELETE /connections/{provider}  -> remove the caller's link to provider
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/account", account.NewHandler(flow, sessions).Router())
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Delete("/connections/{provider}", h.handleUnlink)
	return r
}

// Handle returns the module as a plain http.Handler for mounting.
func (h *Handler) Handle() http.Handler {
	return h.Router()
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), r)
	if err != nil || !s.IsAuthenticated() {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	provider := chi.URLParam(r, "provider")
	account := socialauth.AccountRef{ID: s.AccountID, Type: s.AccountType}

	if err := h.flow.Unlink(r.Context(), account, provider); err != nil {
		if errors.Is(err, socialauth.ErrNoProviderLink) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to unlink provider",
			slog.String("component", "account"),
			slog.String("provider", provider),
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
