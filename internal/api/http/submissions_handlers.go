package http

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/assignments"
)

const maxUploadBytes = 20 << 20

// POST /api/submissions (multipart: task_name, note, file?)
func CreateSubmissionHandler(svc *assignments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, r, apperr.Validation("upload too large"))
				return
			}
			writeError(w, r, apperr.Wrap(apperr.ErrValidation, "multipart form required", err))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		in := assignments.SubmitInput{
			TaskName: r.FormValue("task_name"),
			Note:     r.FormValue("note"),
		}
		f, hdr, err := r.FormFile("file")
		switch {
		case err == nil:
			defer f.Close()
			in.File = &assignments.Upload{Name: hdr.Filename, Body: f}
		case errors.Is(err, http.ErrMissingFile):
		default:
			writeError(w, r, apperr.Wrap(apperr.ErrValidation, "bad file", err))
			return
		}

		sub, err := svc.Submit(r.Context(), identity(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Submission received", "submission": sub})
	}
}

// GET /api/submissions
func ListSubmissionsHandler(svc *assignments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), identity(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/submissions/{id}/grade {"score": 0..100}
func GradeSubmissionHandler(svc *assignments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Score *int `json:"score"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Score == nil {
			writeError(w, r, apperr.Validation("score is required"))
			return
		}
		sub, err := svc.Grade(r.Context(), identity(r), chi.URLParam(r, "id"), *req.Score)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /api/submissions/{id}/file
func SubmissionFileHandler(svc *assignments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, rc, err := svc.Open(r.Context(), identity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sub.FileName}))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = io.Copy(w, rc)
	}
}
