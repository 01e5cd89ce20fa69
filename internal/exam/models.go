package exam

import "time"

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Exam struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	CreatedBy       string `json:"created_by,omitempty"`
	CreatedAt       int64  `json:"created_at,omitempty"`
}

// ExamWithQuestions is an exam plus its ordered question list.
type ExamWithQuestions struct {
	Exam
	Questions []Question `json:"questions"`
}

type Question struct {
	ID            string  `json:"id"`
	ExamID        string  `json:"exam_id,omitempty"`
	Type          string  `json:"type"` // mcq | text
	Text          string  `json:"question_text"`
	Choices       Choices `json:"choices"`
	CorrectAnswer *string `json:"correct_answer,omitempty"` // stripped for students
	Marks         int     `json:"marks"`
	OrderIndex    int     `json:"order_index"`
}

type Attempt struct {
	ID         string     `json:"id"`
	ExamID     string     `json:"exam_id"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"` // in_progress|completed
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	TotalScore int        `json:"total_score"`
}

// AttemptAnswer is keyed by (AttemptID, QuestionID); resubmission overwrites it.
type AttemptAnswer struct {
	AttemptID     string    `json:"attempt_id"`
	QuestionID    string    `json:"question_id"`
	AnswerText    string    `json:"answer_text"`
	IsCorrect     bool      `json:"is_correct"`
	MarksObtained int       `json:"marks_obtained"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// AnswerReview joins an answer with the question it answers.
type AnswerReview struct {
	AttemptAnswer
	QuestionText  string  `json:"question_text"`
	Type          string  `json:"type"`
	Choices       Choices `json:"choices"`
	CorrectAnswer *string `json:"correct_answer"`
}

type Results struct {
	Attempt Attempt        `json:"attempt"`
	Answers []AnswerReview `json:"answers"`
}

type StartedAttempt struct {
	AttemptID string     `json:"attempt_id"`
	Resumed   bool       `json:"resumed"`
	Questions []Question `json:"questions"`
}

type AnswerOutcome struct {
	IsCorrect     bool `json:"is_correct"`
	MarksObtained int  `json:"marks_obtained"`
}

// ExamResult is a row of the whole-exam submission path. Rows are append-only.
type ExamResult struct {
	ID          string         `json:"id"`
	ExamID      string         `json:"exam_id"`
	UserID      string         `json:"user_id"`
	Answers     map[string]any `json:"answers"`
	TotalScore  int            `json:"total_score"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
