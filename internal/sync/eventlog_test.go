package syncx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-results/internal/db"
)

func TestRecordAndSince(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer d.Close()

	repo := NewEventRepo(d)
	require.NoError(t, repo.Record(ctx, EventAttemptStarted, "a1", map[string]string{"exam_id": "e1"}))
	require.NoError(t, repo.Record(ctx, EventAttemptFinished, "a1", map[string]int{"total_score": 5}))

	events, err := repo.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventAttemptStarted, events[0].Type)
	assert.Equal(t, "local", events[0].SiteID)
	assert.JSONEq(t, `{"total_score":5}`, events[1].DataJSON)

	rest, err := repo.Since(ctx, events[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a1", rest[0].Key)
}

type failing struct{ calls int }

func (f *failing) Record(context.Context, string, string, any) error {
	f.calls++
	return errors.New("down")
}

type counting struct{ types []string }

func (c *counting) Record(_ context.Context, typ, _ string, _ any) error {
	c.types = append(c.types, typ)
	return nil
}

func TestMultiContinuesPastFailures(t *testing.T) {
	f, c := &failing{}, &counting{}
	m := Multi{f, nil, c}

	assert.NoError(t, m.Record(context.Background(), EventExamSubmitted, "r1", nil))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, []string{EventExamSubmitted}, c.types)
}
