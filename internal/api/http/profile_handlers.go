package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

// profileView is a user as shown to clients, with display name and avatar resolved.
type profileView struct {
	users.User
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func newProfileView(u users.User) profileView {
	return profileView{User: u, Name: u.DisplayName(), Avatar: u.Avatar()}
}

// GET /api/auth/me and GET /api/profile
func ProfileHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := store.GetByID(r.Context(), identity(r).UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileView(u))
	}
}

// PUT /api/profile
func UpdateProfileHandler(store *users.Store, events syncx.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p users.ProfileUpdate
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := store.UpdateProfile(r.Context(), identity(r).UserID, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		recordEvent(r.Context(), events, syncx.EventProfileUpdated, u.ID, map[string]string{"name": u.DisplayName()})
		writeJSON(w, http.StatusOK, newProfileView(u))
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /api/profile/password
func ChangePasswordHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.NewPassword == "" {
			writeError(w, r, apperr.Validation("new password required"))
			return
		}
		if err := store.ChangePassword(r.Context(), identity(r).UserID, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
