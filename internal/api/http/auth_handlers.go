package http

import (
	"context"
	"log/slog"
	"net/http"

	auth "github.com/mind-engage/mindengage-results/internal/auth/middleware"
	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

// AuthOptions controls the public auth endpoints.
type AuthOptions struct {
	CookieSecure       bool
	EnableRegistration bool
}

type sessionResp struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        profileView `json:"user"`
}

func startSession(w http.ResponseWriter, authSvc *auth.AuthService, u users.User, secure bool) (sessionResp, error) {
	tok, err := authSvc.IssueJWT(rbac.Identity{UserID: u.ID, Username: u.Username, Role: u.Role})
	if err != nil {
		return sessionResp{}, err
	}
	auth.SetSessionCookie(w, tok, authSvc.TTL(), secure)
	return sessionResp{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(authSvc.TTL().Seconds()),
		User:        newProfileView(u),
	}, nil
}

// POST /api/auth/register
func RegisterHandler(store *users.Store, authSvc *auth.AuthService, events syncx.Recorder, opts AuthOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !opts.EnableRegistration {
			writeError(w, r, apperr.Forbidden("registration is disabled"))
			return
		}
		var in users.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := store.Register(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		recordEvent(r.Context(), events, syncx.EventUserRegistered, u.ID, map[string]string{"username": u.Username})
		resp, err := startSession(w, authSvc, u, opts.CookieSecure)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// POST /api/auth/login
func LoginHandler(store *users.Store, authSvc *auth.AuthService, opts AuthOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, r, apperr.Validation("username and password are required"))
			return
		}
		u, err := store.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := startSession(w, authSvc, u, opts.CookieSecure)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// POST /api/auth/logout
func LogoutHandler(opts AuthOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.ClearSessionCookie(w, opts.CookieSecure)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	}
}

func recordEvent(ctx context.Context, rec syncx.Recorder, typ, key string, data any) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, typ, key, data); err != nil {
		slog.WarnContext(ctx, "record event", "type", typ, "key", key, "err", err)
	}
}
