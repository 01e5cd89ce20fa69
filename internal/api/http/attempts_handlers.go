package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-results/internal/exam"
)

// GET /api/exams/{id}/start
func StartAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := svc.StartAttempt(r.Context(), identity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, started)
	}
}

// POST /api/exams/{id}/answer, where id is the attempt id.
func SubmitAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string  `json:"question_id"`
			AnswerText *string `json:"answer_text"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := svc.SubmitAnswer(r.Context(), identity(r), chi.URLParam(r, "id"), req.QuestionID, req.AnswerText)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Answer saved",
			"is_correct":     out.IsCorrect,
			"marks_obtained": out.MarksObtained,
		})
	}
}

// POST /api/exams/{id}/finish, where id is the attempt id.
func FinishAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.FinishAttempt(r.Context(), identity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Exam finished",
			"total_score": a.TotalScore,
			"finished_at": a.FinishedAt,
		})
	}
}

// GET /api/exams/{id}/results, where id is the attempt id.
func ResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResults(r.Context(), identity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /api/attempts?exam_id=...&user_id=...&status=...&limit=50&offset=0
// Callers without attempt:view-all only see their own attempts.
func ListAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListAttempts(r.Context(), identity(r), exam.AttemptListOpts{
			ExamID: strings.TrimSpace(q.Get("exam_id")),
			UserID: strings.TrimSpace(q.Get("user_id")),
			Status: strings.TrimSpace(q.Get("status")),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
