package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-results/internal/scoreboard"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
)

// GET /api/leaderboard?limit=10
func LeaderboardHandler(svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Leaderboard(r.Context(), identity(r), parseIntDefault(r.URL.Query().Get("limit"), scoreboard.DefaultLimit))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/myscores
func MyScoresHandler(svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mine, err := svc.MyScores(r.Context(), identity(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mine)
	}
}

// GET /api/events?after=0&limit=100
func EventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := int64(parseIntDefault(r.URL.Query().Get("after"), 0))
		list, err := repo.Since(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
