package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

// GET /api/users?role=
func ListUsersHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("role")))
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]profileView, 0, len(list))
		for _, u := range list {
			out = append(out, newProfileView(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /api/users/{userID}/role
func UpdateUserRoleHandler(store *users.Store, events syncx.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		userID := chi.URLParam(r, "userID")
		if err := store.SetRole(r.Context(), userID, req.Role); err != nil {
			writeError(w, r, err)
			return
		}
		recordEvent(r.Context(), events, syncx.EventRoleChanged, userID, map[string]string{"role": strings.ToLower(strings.TrimSpace(req.Role))})
		w.WriteHeader(http.StatusNoContent)
	}
}
