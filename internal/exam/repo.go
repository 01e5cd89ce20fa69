package exam

import (
	"context"
	"time"
)

type AttemptListOpts struct {
	ExamID string
	UserID string
	Status string // optional: in_progress|completed
	Limit  int
	Offset int
}

// Store is the relational persistence the exam service runs on.
type Store interface {
	ListExams(ctx context.Context) ([]Exam, error)
	GetExam(ctx context.Context, id string) (Exam, error)
	// PutExam creates an exam and its questions in one transaction.
	PutExam(ctx context.Context, e Exam, questions []Question) error
	ListQuestions(ctx context.Context, examID string) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)

	// FindOrCreateAttempt returns the open attempt for (examID, userID),
	// creating it atomically when none exists. created reports which happened.
	FindOrCreateAttempt(ctx context.Context, examID, userID string, now time.Time) (a Attempt, created bool, err error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	// UpsertAnswer writes the answer only while the attempt is in progress.
	UpsertAnswer(ctx context.Context, ans AttemptAnswer) error
	// FinishAttempt sums marks and completes the attempt; finished reports
	// whether this call made the transition.
	FinishAttempt(ctx context.Context, id string, now time.Time) (a Attempt, finished bool, err error)
	ListAnswerReviews(ctx context.Context, attemptID string) ([]AnswerReview, error)

	InsertResult(ctx context.Context, r ExamResult) error
}
