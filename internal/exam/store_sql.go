package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) ListExams(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, duration_minutes, created_by, created_at
		   FROM exams ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	var e Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, duration_minutes, created_by, created_at FROM exams WHERE id=$1`, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, apperr.Wrap(apperr.ErrNotFound, "exam not found", err)
	}
	if err != nil {
		return Exam{}, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam, questions []Question) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO exams (id, title, description, duration_minutes, created_by, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)
			 ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Title, e.Description, e.DurationMinutes, e.CreatedBy, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.New(apperr.ErrConflict, "exam id already exists")
		}
		for _, q := range questions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO questions (id, exam_id, type, question_text, choices, correct_answer, marks, order_index)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				q.ID, e.ID, q.Type, q.Text, q.Choices, nullString(q.CorrectAnswer), q.Marks, q.OrderIndex)
			if err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

const questionCols = `id, exam_id, type, question_text, choices, correct_answer, marks, order_index`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var key sql.NullString
	if err := row.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &q.Choices, &key, &q.Marks, &q.OrderIndex); err != nil {
		return Question{}, err
	}
	if key.Valid {
		k := key.String
		q.CorrectAnswer = &k
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE exam_id=$1 ORDER BY order_index, id`, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.Wrap(apperr.ErrNotFound, "question not found", err)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

const attemptCols = `id, exam_id, user_id, status, started_at, finished_at, total_score`

func scanAttempt(row interface{ Scan(...any) error }) (Attempt, error) {
	var a Attempt
	var started int64
	var finished sql.NullInt64
	if err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &started, &finished, &a.TotalScore); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = time.Unix(started, 0).UTC()
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		a.FinishedAt = &t
	}
	return a, nil
}

func getAttempt(ctx context.Context, q rowQuerier, id string) (Attempt, error) {
	a, err := scanAttempt(q.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM exam_attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.Wrap(apperr.ErrNotFound, "attempt not found", err)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return getAttempt(ctx, s.db, id)
}

func (s *SQLStore) FindOrCreateAttempt(ctx context.Context, examID, userID string, now time.Time) (Attempt, bool, error) {
	// The partial unique index on open attempts turns a racing second insert
	// into a no-op; the read below then returns the winner's row. A retry covers
	// the attempt being finished between the two statements.
	for try := 0; try < 3; try++ {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO exam_attempts (id, exam_id, user_id, status, started_at, total_score)
			 VALUES ($1,$2,$3,'in_progress',$4,0)
			 ON CONFLICT DO NOTHING`,
			uuid.NewString(), examID, userID, now.Unix())
		if err != nil {
			return Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
		}
		n, _ := res.RowsAffected()

		a, err := scanAttempt(s.db.QueryRowContext(ctx,
			`SELECT `+attemptCols+` FROM exam_attempts
			  WHERE exam_id=$1 AND user_id=$2 AND status='in_progress'`, examID, userID))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Attempt{}, false, fmt.Errorf("find attempt: %w", err)
		}
		return a, n == 1, nil
	}
	return Attempt{}, false, errors.New("find attempt: open attempt vanished repeatedly")
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var where []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, col+"=$"+strconv.Itoa(len(args)))
	}
	add("exam_id", opts.ExamID)
	add("user_id", opts.UserID)
	add("status", opts.Status)

	q := `SELECT ` + attemptCols + ` FROM exam_attempts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, max(opts.Offset, 0))
	q += fmt.Sprintf(` ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertAnswer(ctx context.Context, ans AttemptAnswer) error {
	// Conditional insert: nothing is written once the attempt has left
	// in_progress, even if it finished after the caller's status check.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, answer_text, is_correct, marks_obtained, answered_at)
		 SELECT CAST($1 AS TEXT), CAST($2 AS TEXT), CAST($3 AS TEXT), CAST($4 AS BOOLEAN), CAST($5 AS INTEGER), CAST($6 AS BIGINT)
		  WHERE EXISTS (SELECT 1 FROM exam_attempts WHERE id=$1 AND status='in_progress')
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		   answer_text=EXCLUDED.answer_text,
		   is_correct=EXCLUDED.is_correct,
		   marks_obtained=EXCLUDED.marks_obtained,
		   answered_at=EXCLUDED.answered_at`,
		ans.AttemptID, ans.QuestionID, ans.AnswerText, ans.IsCorrect, ans.MarksObtained, ans.AnsweredAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrInvalidState, "attempt is not in progress")
	}
	return nil
}

func (s *SQLStore) FinishAttempt(ctx context.Context, id string, now time.Time) (Attempt, bool, error) {
	var (
		a        Attempt
		finished bool
	)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		a, err = getAttempt(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.Status == StatusCompleted {
			return nil
		}
		var total int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(marks_obtained), 0) FROM attempt_answers WHERE attempt_id=$1`, id).Scan(&total); err != nil {
			return fmt.Errorf("sum marks: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE exam_attempts SET status='completed', finished_at=$1, total_score=$2
			  WHERE id=$3 AND status='in_progress'`,
			now.Unix(), total, id)
		if err != nil {
			return fmt.Errorf("finish attempt: %w", err)
		}
		n, _ := res.RowsAffected()
		finished = n == 1
		a, err = getAttempt(ctx, tx, id)
		return err
	})
	if err != nil {
		return Attempt{}, false, err
	}
	return a, finished, nil
}

func (s *SQLStore) ListAnswerReviews(ctx context.Context, attemptID string) ([]AnswerReview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.attempt_id, a.question_id, a.answer_text, a.is_correct, a.marks_obtained, a.answered_at,
		        q.question_text, q.type, q.choices, q.correct_answer
		   FROM attempt_answers a
		   JOIN questions q ON q.id = a.question_id
		  WHERE a.attempt_id=$1
		  ORDER BY q.order_index, q.id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()
	out := []AnswerReview{}
	for rows.Next() {
		var r AnswerReview
		var answered int64
		var key sql.NullString
		if err := rows.Scan(&r.AttemptID, &r.QuestionID, &r.AnswerText, &r.IsCorrect, &r.MarksObtained, &answered,
			&r.QuestionText, &r.Type, &r.Choices, &key); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		r.AnsweredAt = time.Unix(answered, 0).UTC()
		if key.Valid {
			k := key.String
			r.CorrectAnswer = &k
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) InsertResult(ctx context.Context, r ExamResult) error {
	buf, err := json.Marshal(r.Answers)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, "answers are not serialisable", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_results (id, exam_id, user_id, answers, total_score, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.ExamID, r.UserID, string(buf), r.TotalScore, r.SubmittedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
