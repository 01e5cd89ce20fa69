package exam

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-results/internal/db"
	"github.com/mind-engage/mindengage-results/internal/rbac"
)

var (
	student = rbac.Identity{UserID: "u-student", Username: "sam", Role: rbac.RoleStudent}
	other   = rbac.Identity{UserID: "u-other", Username: "olly", Role: rbac.RoleStudent}
	teacher = rbac.Identity{UserID: "u-teacher", Username: "tess", Role: rbac.RoleTeacher}
)

func strp(s string) *string { return &s }

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewSQLStore(d)
}

type recorded struct {
	typ, key string
	data     any
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recorded
}

func (f *fakeRecorder) Record(_ context.Context, typ, key string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recorded{typ, key, data})
	return nil
}

func (f *fakeRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.typ)
	}
	return out
}

// seedExam stores exam "E" with Q1 (mcq, B, 5), Q2 (mcq, A, 3) and Q3 (text, 2),
// inserted out of order.
func seedExam(t *testing.T, s Store) {
	t.Helper()
	err := s.PutExam(context.Background(),
		Exam{ID: "E", Title: "Algebra", Description: "unit 1", DurationMinutes: 30, CreatedAt: 1},
		[]Question{
			{ID: "Q3", Type: "text", Text: "Explain", Marks: 2, OrderIndex: 3},
			{ID: "Q1", Type: "mcq", Text: "Pick B", Choices: NewChoices("A", "B", "C"), CorrectAnswer: strp("B"), Marks: 5, OrderIndex: 1},
			{ID: "Q2", Type: "mcq", Text: "Pick A", Choices: NewChoices("A", "B", "C"), CorrectAnswer: strp("A"), Marks: 3, OrderIndex: 2},
		})
	require.NoError(t, err)
}

func newService(t *testing.T) (*Service, *SQLStore, *fakeRecorder) {
	t.Helper()
	st := newSQLStore(t)
	seedExam(t, st)
	rec := &fakeRecorder{}
	svc := NewService(st, rec)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, st, rec
}
