package exam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-results/internal/apperr"
)

func TestCatalogOrdersAndNormalisesChoices(t *testing.T) {
	ctx := context.Background()
	st := newSQLStore(t)
	seedExam(t, st)

	// a row written by an older client with a string-encoded array
	_, err := st.db.ExecContext(ctx, `UPDATE questions SET choices=$1 WHERE id='Q2'`, `"[\"A\",\"B\",\"C\"]"`)
	require.NoError(t, err)

	c := NewCatalog(st)
	qs, err := c.Questions(ctx, "E", false)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, []string{qs[0].ID, qs[1].ID, qs[2].ID})
	assert.Equal(t, []string{"A", "B", "C"}, qs[1].Choices.Options)
	assert.False(t, qs[2].Choices.Valid)
	for _, q := range qs {
		assert.Nil(t, q.CorrectAnswer)
	}

	qs, err = c.Questions(ctx, "unknown", true)
	require.NoError(t, err)
	assert.Empty(t, qs)

	_, err = c.Exam(ctx, "unknown", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	e, err := c.Exam(ctx, "E", true)
	require.NoError(t, err)
	require.NotNil(t, e.Questions[0].CorrectAnswer)
	assert.Equal(t, "B", *e.Questions[0].CorrectAnswer)
}
