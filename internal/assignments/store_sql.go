package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-results/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const submissionCols = `s.id, s.user_id, COALESCE(u.username, ''), s.task_name, s.note, s.file_key, s.file_name,
	s.score, s.graded_by, s.submitted_at, s.graded_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var (
		s         Submission
		score     sql.NullInt64
		submitted int64
		graded    sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.TaskName, &s.Note, &s.FileKey, &s.FileName,
		&score, &s.GradedBy, &submitted, &graded); err != nil {
		return Submission{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		s.Score = &v
	}
	s.SubmittedAt = time.Unix(submitted, 0).UTC()
	if graded.Valid {
		t := time.Unix(graded.Int64, 0).UTC()
		s.GradedAt = &t
	}
	return s, nil
}

func (st *SQLStore) Insert(ctx context.Context, s Submission) error {
	_, err := st.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, task_name, note, file_key, file_name, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.UserID, s.TaskName, s.Note, s.FileKey, s.FileName, s.SubmittedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (st *SQLStore) Get(ctx context.Context, id string) (Submission, error) {
	s, err := scanSubmission(st.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions s LEFT JOIN users u ON u.id = s.user_id WHERE s.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, apperr.Wrap(apperr.ErrNotFound, "submission not found", err)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return s, nil
}

// List returns submissions newest first; an empty userID lists everyone's.
func (st *SQLStore) List(ctx context.Context, userID string) ([]Submission, error) {
	rows, err := st.db.QueryContext(ctx,
		`SELECT `+submissionCols+` FROM submissions s LEFT JOIN users u ON u.id = s.user_id
		  WHERE ($1 = '' OR s.user_id = $1)
		  ORDER BY s.submitted_at DESC, s.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (st *SQLStore) SetScore(ctx context.Context, id string, score int, gradedBy string, at time.Time) error {
	res, err := st.db.ExecContext(ctx,
		`UPDATE submissions SET score=$1, graded_by=$2, graded_at=$3 WHERE id=$4`,
		score, gradedBy, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("submission not found")
	}
	return nil
}

func (st *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM submissions WHERE id=$1`, id)
	return err
}
