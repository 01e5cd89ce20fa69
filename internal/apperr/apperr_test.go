package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("question_id is required"), http.StatusBadRequest},
		{New(ErrUnauthenticated, "login required"), http.StatusUnauthorized},
		{Forbidden("not your attempt"), http.StatusForbidden},
		{NotFound("exam not found"), http.StatusNotFound},
		{New(ErrConflict, "username taken"), http.StatusConflict},
		{New(ErrInvalidState, "attempt already completed"), http.StatusConflict},
		{fmt.Errorf("get attempt: %w", NotFound("attempt not found")), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), c.err.Error())
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	err := Wrap(ErrNotFound, "attempt not found", sql.ErrNoRows)
	assert.Equal(t, "attempt not found", Message(err, "request failed"))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "request failed", Message(errors.New("pq: relation missing"), "request failed"))
}
