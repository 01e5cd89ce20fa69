package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-results/internal/assignments"
	auth "github.com/mind-engage/mindengage-results/internal/auth/middleware"
	"github.com/mind-engage/mindengage-results/internal/db"
	"github.com/mind-engage/mindengage-results/internal/exam"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	"github.com/mind-engage/mindengage-results/internal/scoreboard"
	"github.com/mind-engage/mindengage-results/internal/storage"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

// mapCache is an in-process scoreboard.Cache.
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return nil, scoreboard.ErrCacheMiss
	}
	return b, nil
}

func (c *mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = val
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	return nil
}

type testServer struct {
	h     http.Handler
	users *users.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>dashboard</h1>"), 0o644))

	events := syncx.NewEventRepo(d)
	scores := scoreboard.NewService(scoreboard.NewSQLStore(d), &mapCache{}, time.Minute)
	rec := syncx.Multi{events, scores}
	userStore := users.NewStore(d)

	r := chi.NewRouter()
	Mount(r, Deps{
		DB:          d,
		Auth:        auth.NewAuthService("test-secret", time.Hour),
		Users:       userStore,
		Exams:       exam.NewService(exam.NewSQLStore(d), rec),
		Scores:      scores,
		Assignments: assignments.NewService(assignments.NewSQLStore(d), blobs, rec),
		Events:      events,
		Recorder:    rec,
		AuthOptions: AuthOptions{EnableRegistration: true},
		StaticDir:   static,
	})
	return &testServer{h: r, users: userStore}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// register creates an account and returns its bearer token.
func (s *testServer) register(t *testing.T, username, role string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "password": "secret1", "full_name": strings.ToUpper(username[:1]) + username[1:],
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[sessionResp](t, rr)
	if role != rbac.RoleStudent {
		require.NoError(t, s.users.SetRole(context.Background(), resp.User.ID, role))
	}
	return resp.AccessToken
}

func createAlgebra(t *testing.T, s *testServer, teacherTok string) exam.ExamWithQuestions {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/exams", teacherTok, map[string]any{
		"title": "Algebra",
		"questions": []map[string]any{
			{"type": "mcq", "question_text": "Pick B", "choices": []string{"A", "B", "C"}, "correct_answer": "B", "marks": 5, "order_index": 1},
			{"type": "mcq", "question_text": "Pick A", "choices": `["A","B","C"]`, "correct_answer": "A", "marks": 3, "order_index": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[exam.ExamWithQuestions](t, rr)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rr = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid username or password", decode[map[string]string](t, rr)["error"])

	rr = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// the session cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	s.h.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	view := decode[map[string]any](t, me)
	assert.Equal(t, "alice", view["username"])
	assert.Equal(t, "alice", view["name"])
	assert.Contains(t, view["avatar"], "ui-avatars.com")

	rr = s.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExamAttemptFlow(t *testing.T) {
	s := newTestServer(t)
	teacher := s.register(t, "tess", rbac.RoleTeacher)
	alice := s.register(t, "alice", rbac.RoleStudent)
	bob := s.register(t, "bob", rbac.RoleStudent)

	rr := s.do(t, http.MethodPost, "/api/exams", alice, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	e := createAlgebra(t, s, teacher)
	require.Len(t, e.Questions, 2)
	q1, q2 := e.Questions[0].ID, e.Questions[1].ID

	rr = s.do(t, http.MethodGet, "/api/exams", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]exam.Exam](t, rr), 1)

	rr = s.do(t, http.MethodGet, "/api/exams/"+e.ID, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "correct_answer")
	assert.Contains(t, rr.Body.String(), `"choices":["A","B","C"]`)

	rr = s.do(t, http.MethodGet, "/api/exams/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/exams/"+e.ID+"/start", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	started := decode[exam.StartedAttempt](t, rr)
	require.NotEmpty(t, started.AttemptID)
	assert.Len(t, started.Questions, 2)

	rr = s.do(t, http.MethodGet, "/api/exams/"+e.ID+"/start", alice, nil)
	assert.Equal(t, started.AttemptID, decode[exam.StartedAttempt](t, rr).AttemptID)

	base := "/api/exams/" + started.AttemptID
	rr = s.do(t, http.MethodPost, base+"/answer", alice, map[string]string{"question_id": q1, "answer_text": "B"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message":"Answer saved","is_correct":true,"marks_obtained":5}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, base+"/answer", alice, map[string]string{"question_id": q2, "answer_text": "C"})
	assert.JSONEq(t, `{"message":"Answer saved","is_correct":false,"marks_obtained":0}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, base+"/answer", bob, map[string]string{"question_id": q2, "answer_text": "A"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/answer", alice, map[string]string{"answer_text": "A"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/finish", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 5, decode[map[string]any](t, rr)["total_score"])

	rr = s.do(t, http.MethodPost, base+"/answer", alice, map[string]string{"question_id": q2, "answer_text": "A"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/finish", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 5, decode[map[string]any](t, rr)["total_score"])

	rr = s.do(t, http.MethodGet, base+"/results", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[exam.Results](t, rr)
	assert.Equal(t, exam.StatusCompleted, res.Attempt.Status)
	require.Len(t, res.Answers, 2)
	assert.Equal(t, "Pick B", res.Answers[0].QuestionText)

	rr = s.do(t, http.MethodGet, base+"/results", bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodGet, base+"/results", teacher, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/exams/missing/results", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "attempt not found", decode[map[string]string](t, rr)["error"])

	rr = s.do(t, http.MethodPost, "/api/exams/"+e.ID+"/submit", bob, map[string]any{
		"answers": map[string]string{q1: "B", q2: "A"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sub := decode[map[string]any](t, rr)
	assert.Equal(t, "Exam submitted", sub["message"])
	assert.EqualValues(t, 8, sub["result"].(map[string]any)["total_score"])

	rr = s.do(t, http.MethodGet, "/api/attempts", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]exam.Attempt](t, rr), 1)

	rr = s.do(t, http.MethodGet, "/api/leaderboard", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[[]scoreboard.Entry](t, rr)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].Username)
	assert.Equal(t, 8, board[0].TotalScore)
	assert.Equal(t, "alice", board[1].Username)
	assert.Equal(t, 5, board[1].TotalScore)

	rr = s.do(t, http.MethodGet, "/api/myscores", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	mine := decode[scoreboard.MyScores](t, rr)
	assert.Equal(t, 5, mine.Total)
}

func TestSubmissionUploadAndGrade(t *testing.T) {
	s := newTestServer(t)
	teacher := s.register(t, "tess", rbac.RoleTeacher)
	alice := s.register(t, "alice", rbac.RoleStudent)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("task_name", "Essay"))
	fw, err := mw.CreateFormFile("file", "essay.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("my essay"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[struct {
		Submission assignments.Submission `json:"submission"`
	}](t, rr).Submission
	assert.Equal(t, "essay.txt", created.FileName)

	rr = s.do(t, http.MethodPost, "/api/submissions/"+created.ID+"/grade", alice, map[string]int{"score": 100})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/submissions/"+created.ID+"/grade", teacher, map[string]int{"score": 90})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/submissions/"+created.ID+"/file", teacher, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "my essay", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "essay.txt")

	rr = s.do(t, http.MethodGet, "/api/submissions", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]assignments.Submission](t, rr)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Score)
	assert.Equal(t, 90, *list[0].Score)

	rr = s.do(t, http.MethodGet, "/api/leaderboard", alice, nil)
	assert.Equal(t, 90, decode[[]scoreboard.Entry](t, rr)[0].TotalScore)
}

func TestAdminAndOperationalRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "root", rbac.RoleAdmin)
	alice := s.register(t, "alice", rbac.RoleStudent)

	rr := s.do(t, http.MethodGet, "/api/users?role=student", alice, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/users?role=student", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]map[string]any](t, rr)
	require.Len(t, list, 1)

	rr = s.do(t, http.MethodGet, "/api/leaderboard", admin, nil)
	require.Len(t, decode[[]scoreboard.Entry](t, rr), 1, "alice is on the cached board")

	rr = s.do(t, http.MethodPut, "/api/users/"+list[0]["id"].(string)+"/role", admin, map[string]string{"role": "teacher"})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/leaderboard", admin, nil)
	assert.Empty(t, decode[[]scoreboard.Entry](t, rr), "role change drops the cached board")

	// the stored role applies to the old token immediately
	rr = s.do(t, http.MethodPost, "/api/exams", alice, map[string]any{"title": "Now allowed"})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/events", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var types []string
	for _, e := range decode[[]syncx.Event](t, rr) {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, syncx.EventUserRegistered)
	assert.Contains(t, types, syncx.EventExamCreated)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil).Code)

	rr = s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dashboard")
}

func TestProfileUpdateAndPassword(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", rbac.RoleStudent)

	rr := s.do(t, http.MethodGet, "/api/leaderboard", alice, nil)
	board := decode[[]scoreboard.Entry](t, rr)
	require.Len(t, board, 1)
	assert.Equal(t, "Alice", board[0].Name)

	rr = s.do(t, http.MethodPut, "/api/profile", alice, map[string]string{"full_name": "Alice Liddell", "bio": "hi"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Alice Liddell", decode[map[string]any](t, rr)["name"])

	rr = s.do(t, http.MethodGet, "/api/leaderboard", alice, nil)
	board = decode[[]scoreboard.Entry](t, rr)
	require.Len(t, board, 1)
	assert.Equal(t, "Alice Liddell", board[0].Name, "profile change drops the cached board")

	rr = s.do(t, http.MethodPut, "/api/profile", alice, map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/profile/password", alice, map[string]string{"old_password": "bad", "new_password": "another1"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/profile/password", alice, map[string]string{"old_password": "secret1", "new_password": "another1"})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "another1"})
	assert.Equal(t, http.StatusOK, rr.Code)
}
