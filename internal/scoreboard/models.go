package scoreboard

import "time"

// Score kinds in a user's history.
const (
	KindExam       = "exam"       // completed attempt
	KindSubmission = "submission" // whole-exam submission, best per exam
	KindAssignment = "assignment" // graded assignment
)

type Entry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	Avatar           string `json:"avatar"`
	Batch            string `json:"batch"`
	TotalScore       int    `json:"total_score"`
	TotalSubmissions int    `json:"total_submissions"`
}

type Score struct {
	TaskName string    `json:"task_name"`
	Score    int       `json:"score"`
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
}

type MyScores struct {
	Total  int     `json:"total"`
	Scores []Score `json:"scores"`
}
