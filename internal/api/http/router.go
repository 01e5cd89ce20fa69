package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-results/internal/assignments"
	auth "github.com/mind-engage/mindengage-results/internal/auth/middleware"
	"github.com/mind-engage/mindengage-results/internal/exam"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	"github.com/mind-engage/mindengage-results/internal/scoreboard"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

type Deps struct {
	DB          *sql.DB
	Auth        *auth.AuthService
	Users       *users.Store
	Exams       *exam.Service
	Scores      *scoreboard.Service
	Assignments *assignments.Service
	Events      *syncx.EventRepo
	Recorder    syncx.Recorder
	AuthOptions AuthOptions
	StaticDir   string // empty disables the static site
}

// Mount registers every route of the dashboard on r.
func Mount(r chi.Router, d Deps) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(ar chi.Router) {
		// public
		ar.Post("/auth/register", RegisterHandler(d.Users, d.Auth, d.Recorder, d.AuthOptions))
		ar.Post("/auth/login", LoginHandler(d.Users, d.Auth, d.AuthOptions))
		ar.Post("/auth/logout", LogoutHandler(d.AuthOptions))

		// authenticated: token → stored role → RBAC
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.Authenticate(d.Auth), auth.AttachRoleFromDB(d.Users))

			pr.Get("/auth/me", ProfileHandler(d.Users))
			pr.Get("/profile", ProfileHandler(d.Users))
			pr.Put("/profile", UpdateProfileHandler(d.Users, d.Recorder))
			pr.Post("/profile/password", ChangePasswordHandler(d.Users))

			pr.With(rbac.Require("scores:view")).Get("/leaderboard", LeaderboardHandler(d.Scores))
			pr.With(rbac.Require("scores:view")).Get("/myscores", MyScoresHandler(d.Scores))

			pr.Route("/exams", func(er chi.Router) {
				er.With(rbac.Require("exam:view")).Get("/", ListExamsHandler(d.Exams))
				er.With(rbac.Require("exam:create")).Post("/", CreateExamHandler(d.Exams))
				er.With(rbac.Require("exam:view")).Get("/{id}", GetExamHandler(d.Exams))

				// {id} is the exam id for submit/start and the attempt id below
				er.With(rbac.Require("exam:take")).Post("/{id}/submit", SubmitExamHandler(d.Exams))
				er.With(rbac.Require("exam:take")).Get("/{id}/start", StartAttemptHandler(d.Exams))
				er.With(rbac.Require("exam:take")).Post("/{id}/start", StartAttemptHandler(d.Exams))
				er.With(rbac.Require("exam:take")).Post("/{id}/answer", SubmitAnswerHandler(d.Exams))
				er.With(rbac.Require("exam:take")).Post("/{id}/finish", FinishAttemptHandler(d.Exams))
				er.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
					Get("/{id}/results", ResultsHandler(d.Exams))
			})
			pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
				Get("/attempts", ListAttemptsHandler(d.Exams))

			pr.Route("/submissions", func(sr chi.Router) {
				sr.With(rbac.Require("submission:create")).Post("/", CreateSubmissionHandler(d.Assignments))
				sr.With(rbac.RequireAny("submission:view-own", "submission:view-all")).
					Get("/", ListSubmissionsHandler(d.Assignments))
				sr.With(rbac.Require("submission:grade")).Post("/{id}/grade", GradeSubmissionHandler(d.Assignments))
				sr.With(rbac.RequireAny("submission:view-own", "submission:view-all")).
					Get("/{id}/file", SubmissionFileHandler(d.Assignments))
			})

			pr.With(rbac.Require("users:manage")).Get("/users", ListUsersHandler(d.Users))
			pr.With(rbac.Require("users:manage")).Put("/users/{userID}/role", UpdateUserRoleHandler(d.Users, d.Recorder))
			pr.With(rbac.Require("events:view")).Get("/events", EventsHandler(d.Events))
		})
	})

	if d.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.StaticDir)))
	}
}
