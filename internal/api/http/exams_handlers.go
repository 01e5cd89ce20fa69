package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/exam"
)

// GET /api/exams
func ListExamsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListExams(r.Context(), identity(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/exams/{id}
func GetExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.GetExam(r.Context(), identity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// POST /api/exams
func CreateExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ExamWithQuestions
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := svc.CreateExam(r.Context(), identity(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// POST /api/exams/{id}/submit
func SubmitExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]any `json:"answers"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Answers == nil {
			writeError(w, r, apperr.Validation("answers are required"))
			return
		}
		res, err := svc.SubmitWholeExam(r.Context(), identity(r), chi.URLParam(r, "id"), req.Answers)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Exam submitted",
			"total_score": res.TotalScore,
			"result":      res,
		})
	}
}
