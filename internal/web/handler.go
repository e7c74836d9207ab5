// Package web wires the login, callback, logout and home endpoints.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raphael2692/ssohub/internal/auth"
	"github.com/raphael2692/ssohub/pkg/cookie"
	"github.com/raphael2692/ssohub/pkg/logger"
)

// Cookie names shared between login, callback and logout.
const (
	cookieState     = "oauth_state"
	cookieUserEmail = "user_email"
	cookieUserName  = "user_name"
)

// stateTTL bounds how long a pending login may take before the anti-forgery
// cookie expires.
const stateTTL = 300 // seconds

// UserProvisioner ensures a local user record exists after authentication.
type UserProvisioner interface {
	Provision(ctx context.Context, email, name string) error
}

// Handler holds the explicit dependencies of the HTTP surface. Nothing is
// read from globals; every collaborator is passed in at construction.
type Handler struct {
	registry    *auth.Registry
	provisioner UserProvisioner
	cookies     *cookie.Manager
	logger      *slog.Logger
	secure      bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithSecureCookies marks cookies Secure. Enable outside development.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.secure = secure }
}

func NewHandler(registry *auth.Registry, provisioner UserProvisioner, cookies *cookie.Manager, opts ...Option) *Handler {
	h := &Handler{
		registry:    registry,
		provisioner: provisioner,
		cookies:     cookies,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Home renders the home view from the identity cookies when present.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	email, _ := h.cookies.Get(r, cookieUserEmail)
	name, _ := h.cookies.Get(r, cookieUserName)

	err := renderHome(w, homeData{
		Email:     email,
		Name:      name,
		Providers: h.registry.Names(),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render home view", logger.Error(err))
	}
}

// Login issues the anti-forgery state cookie and redirects to the provider's
// consent screen.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		http.Error(w, "unknown provider", http.StatusBadRequest)
		return
	}

	state, err := newState()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate state", logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.cookies.Set(w, cookieState, state,
		cookie.WithMaxAge(stateTTL),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
		cookie.WithSecure(h.secure),
	)

	http.Redirect(w, r, provider.AuthURL(state), http.StatusFound)
}

// Callback validates the returned state, exchanges the authorization code,
// provisions the user and sets the identity cookies. No cookie state is
// committed on any failure path; the state cookie is cleared only on success.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stored, err := h.cookies.Get(r, cookieState)
	if err != nil || stored == "" || stored != r.URL.Query().Get("state") {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	provider, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		http.Error(w, "unknown provider", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "authorization code missing", http.StatusBadRequest)
		return
	}

	result, err := provider.Exchange(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "code exchange failed",
			logger.Provider(provider.Name()),
			logger.Error(err),
		)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	email := result.Identity.Email
	if email == "" {
		http.Error(w, "email not provided by the provider", http.StatusBadRequest)
		return
	}
	name := result.Identity.Name

	if err := h.provisioner.Provision(ctx, email, name); err != nil {
		h.logger.ErrorContext(ctx, "user provisioning failed",
			logger.Provider(provider.Name()),
			logger.UserEmail(email),
			logger.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.cookies.Set(w, cookieUserEmail, email, cookie.WithHTTPOnly(false), cookie.WithSecure(h.secure))
	h.cookies.Set(w, cookieUserName, name, cookie.WithHTTPOnly(false), cookie.WithSecure(h.secure))
	h.cookies.Delete(w, cookieState, cookie.WithSecure(h.secure))

	h.logger.InfoContext(ctx, "user signed in",
		logger.Provider(provider.Name()),
		logger.UserEmail(email),
	)

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the identity cookies. There is no server-side session to
// invalidate.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Delete(w, cookieUserEmail, cookie.WithHTTPOnly(false), cookie.WithSecure(h.secure))
	h.cookies.Delete(w, cookieUserName, cookie.WithHTTPOnly(false), cookie.WithSecure(h.secure))
	http.Redirect(w, r, "/", http.StatusFound)
}

// newState returns 16 random bytes hex-encoded: 32 characters round-tripped
// through the provider and compared byte for byte on return.
func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
