package scoreboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-results/internal/users"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// scoreRows yields one row per counted score. Repeat whole-exam submissions
// only count their best result per exam.
const scoreRows = `
SELECT user_id, total_score AS score FROM exam_attempts WHERE status = 'completed'
UNION ALL
SELECT user_id, MAX(total_score) AS score FROM exam_results GROUP BY user_id, exam_id
UNION ALL
SELECT user_id, score FROM submissions WHERE score IS NOT NULL`

// Leaderboard returns students ordered by total score, then username.
func (s *SQLStore) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.full_name, u.avatar_url, u.batch,
		       COALESCE(SUM(sc.score), 0) AS total, COUNT(sc.user_id) AS n
		  FROM users u
		  LEFT JOIN (`+scoreRows+`) sc ON sc.user_id = u.id
		 WHERE u.role = 'student'
		 GROUP BY u.id, u.username, u.full_name, u.avatar_url, u.batch
		 ORDER BY total DESC, u.username
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var u users.User
		var e Entry
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.AvatarURL, &u.Batch, &e.TotalScore, &e.TotalSubmissions); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Rank = len(out) + 1
		e.UserID, e.Username, e.Batch = u.ID, u.Username, u.Batch
		e.Name, e.Avatar = u.DisplayName(), u.Avatar()
		out = append(out, e)
	}
	return out, rows.Err()
}

// MyScores lists every counted score of one user, newest first.
func (s *SQLStore) MyScores(ctx context.Context, userID string) (MyScores, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.title, a.total_score, 'exam', a.finished_at
		  FROM exam_attempts a JOIN exams e ON e.id = a.exam_id
		 WHERE a.user_id = $1 AND a.status = 'completed'
		UNION ALL
		SELECT e.title, MAX(r.total_score), 'submission', MAX(r.submitted_at)
		  FROM exam_results r JOIN exams e ON e.id = r.exam_id
		 WHERE r.user_id = $1
		 GROUP BY r.exam_id, e.title
		UNION ALL
		SELECT task_name, score, 'assignment', graded_at
		  FROM submissions
		 WHERE user_id = $1 AND score IS NOT NULL
		ORDER BY 4 DESC`, userID)
	if err != nil {
		return MyScores{}, fmt.Errorf("my scores: %w", err)
	}
	defer rows.Close()
	out := MyScores{Scores: []Score{}}
	for rows.Next() {
		var sc Score
		var at sql.NullInt64
		if err := rows.Scan(&sc.TaskName, &sc.Score, &sc.Kind, &at); err != nil {
			return MyScores{}, fmt.Errorf("scan score: %w", err)
		}
		if at.Valid {
			sc.At = time.Unix(at.Int64, 0).UTC()
		}
		out.Total += sc.Score
		out.Scores = append(out.Scores, sc)
	}
	return out, rows.Err()
}
