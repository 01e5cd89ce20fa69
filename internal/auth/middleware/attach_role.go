package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/rbac"
)

// RoleLookup returns the stored role for a user id.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// AttachRoleFromDB replaces the token's role claim with the stored one, so role
// changes apply before the token expires. Tokens of deleted users are rejected.
func AttachRoleFromDB(users RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := rbac.IdentityFromContext(ctx)
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			role, err := users.RoleOf(ctx, id.UserID)
			switch {
			case err == nil:
				id.Role = role
				next.ServeHTTP(w, r.WithContext(rbac.WithIdentity(ctx, id)))
			case errors.Is(err, apperr.ErrNotFound):
				unauthorized(w, "account no longer exists")
			default:
				slog.ErrorContext(ctx, "role lookup failed", "user_id", id.UserID, "err", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
			}
		})
	}
}
