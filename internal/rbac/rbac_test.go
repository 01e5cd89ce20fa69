package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyWildcards(t *testing.T) {
	p := NewPolicy(nil)

	assert.True(t, p.Allows(RoleStudent, "exam:take"))
	assert.True(t, p.Allows(RoleStudent, "profile:update"))
	assert.False(t, p.Allows(RoleStudent, "exam:create"))
	assert.False(t, p.Allows(RoleStudent, "attempt:view-all"))
	assert.True(t, p.Allows(RoleAdmin, "anything:at-all"))
	assert.False(t, p.Allows("ghost", "exam:view"))

	assert.True(t, p.AllowsAny(RoleTeacher, "exam:take", "exam:create"))
	assert.False(t, p.AllowsAny(RoleStudent, "exam:create", "submission:grade"))
}

func TestPolicyCustomTable(t *testing.T) {
	p := NewPolicy(map[string][]string{"auditor": {"events:*"}})
	assert.True(t, p.Allows("auditor", "events:view"))
	assert.False(t, p.Allows("auditor", "eventsx"))
	assert.False(t, p.Allows(RoleAdmin, "exam:view"), "custom table replaces the default")
}

func TestRequireAny(t *testing.T) {
	h := RequireAny("submission:grade", "users:manage")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{
		RoleStudent: http.StatusForbidden,
		RoleTeacher: http.StatusNoContent,
		RoleAdmin:   http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u", Role: role}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: RoleTeacher})
	id, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.True(t, id.Can("submission:grade"))
	assert.False(t, Identity{Role: RoleAdmin}.Can("exam:view"), "anonymous identity has no permissions")
}

func TestRequire(t *testing.T) {
	h := Require("exam:create")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/exams", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/exams", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "s1", Role: RoleStudent}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/exams", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "t1", Role: RoleTeacher}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
