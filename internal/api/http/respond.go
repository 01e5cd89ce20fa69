package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/rbac"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a client-safe message. Internal errors
// are logged with the request id and never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	msg := apperr.Message(err, "internal server error")
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("request body too large")
		}
		return apperr.Wrap(apperr.ErrValidation, "bad json", err)
	}
	return nil
}

func identity(r *http.Request) rbac.Identity {
	id, _ := rbac.IdentityFromContext(r.Context())
	return id
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
