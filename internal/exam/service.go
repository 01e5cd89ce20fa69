package exam

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/grading"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
)

// Service runs the attempt lifecycle. It holds no per-request state; every
// operation is a bounded sequence of store calls.
type Service struct {
	store   Store
	catalog *Catalog
	grader  *grading.Grader
	events  syncx.Recorder
	now     func() time.Time
}

func NewService(store Store, events syncx.Recorder) *Service {
	if events == nil {
		events = syncx.Discard{}
	}
	return &Service{
		store:   store,
		catalog: NewCatalog(store),
		grader:  grading.NewDefaultGrader(),
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

func authorize(id rbac.Identity, perm string) error {
	if id.IsZero() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	if !id.Can(perm) {
		return apperr.Forbidden("forbidden")
	}
	return nil
}

func (s *Service) ListExams(ctx context.Context, id rbac.Identity) ([]Exam, error) {
	if err := authorize(id, "exam:view"); err != nil {
		return nil, err
	}
	return s.catalog.ListExams(ctx)
}

func (s *Service) GetExam(ctx context.Context, id rbac.Identity, examID string) (ExamWithQuestions, error) {
	if err := authorize(id, "exam:view"); err != nil {
		return ExamWithQuestions{}, err
	}
	return s.catalog.Exam(ctx, examID, id.Can("exam:view-answers"))
}

// CreateExam validates and stores a new exam with its questions.
func (s *Service) CreateExam(ctx context.Context, id rbac.Identity, in ExamWithQuestions) (ExamWithQuestions, error) {
	if err := authorize(id, "exam:create"); err != nil {
		return ExamWithQuestions{}, err
	}
	e := in.Exam
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return ExamWithQuestions{}, apperr.Validation("title is required")
	}
	if e.DurationMinutes < 0 {
		return ExamWithQuestions{}, apperr.Validation("duration_minutes must not be negative")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedBy = id.UserID
	e.CreatedAt = s.now().Unix()

	seen := map[int]bool{}
	ungraded := 0
	qs := make([]Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		if err := s.validateQuestion(q); err != nil {
			return ExamWithQuestions{}, apperr.Validation("question " + strconv.Itoa(i+1) + ": " + apperr.Message(err, "invalid"))
		}
		if seen[q.OrderIndex] {
			return ExamWithQuestions{}, apperr.Validation("question " + strconv.Itoa(i+1) + ": duplicate order_index")
		}
		seen[q.OrderIndex] = true
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.ExamID = e.ID
		if !s.grader.Autogradable(q.Type) {
			ungraded++
		}
		qs = append(qs, q)
	}

	if err := s.store.PutExam(ctx, e, qs); err != nil {
		return ExamWithQuestions{}, err
	}
	s.record(ctx, syncx.EventExamCreated, e.ID, map[string]any{"title": e.Title, "questions": len(qs), "ungraded": ungraded})
	return s.catalog.Exam(ctx, e.ID, true)
}

// validateQuestion checks shape. Autogradable types need a non-empty key
// that is one of the choices, otherwise they could never score.
func (s *Service) validateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return apperr.Validation("question_text is required")
	}
	if q.Marks <= 0 {
		return apperr.Validation("marks must be positive")
	}
	if q.Type == "" {
		return apperr.Validation("type is required")
	}
	if !s.grader.Autogradable(q.Type) {
		return nil
	}
	if !q.Choices.Valid || len(q.Choices.Options) < 2 {
		return apperr.Validation(q.Type + " needs at least two choices")
	}
	if q.CorrectAnswer == nil || *q.CorrectAnswer == "" {
		return apperr.Validation(q.Type + " correct_answer is required")
	}
	if !q.Choices.Contains(*q.CorrectAnswer) {
		return apperr.Validation(q.Type + " correct_answer must be one of the choices")
	}
	return nil
}

// StartAttempt resumes the caller's open attempt for the exam or creates one,
// and returns the exam's questions either way.
func (s *Service) StartAttempt(ctx context.Context, id rbac.Identity, examID string) (StartedAttempt, error) {
	if err := authorize(id, "exam:take"); err != nil {
		return StartedAttempt{}, err
	}
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return StartedAttempt{}, err
	}
	a, created, err := s.store.FindOrCreateAttempt(ctx, examID, id.UserID, s.now())
	if err != nil {
		return StartedAttempt{}, err
	}
	if created {
		s.record(ctx, syncx.EventAttemptStarted, a.ID, map[string]string{"exam_id": examID, "user_id": id.UserID})
	}
	qs, err := s.catalog.Questions(ctx, examID, false)
	if err != nil {
		return StartedAttempt{}, err
	}
	return StartedAttempt{AttemptID: a.ID, Resumed: !created, Questions: qs}, nil
}

// SubmitAnswer grades and stores one answer. Resubmitting overwrites the
// previous answer for the same question.
func (s *Service) SubmitAnswer(ctx context.Context, id rbac.Identity, attemptID, questionID string, answer *string) (AnswerOutcome, error) {
	if err := authorize(id, "exam:take"); err != nil {
		return AnswerOutcome{}, err
	}
	if strings.TrimSpace(questionID) == "" {
		return AnswerOutcome{}, apperr.Validation("question_id is required")
	}
	a, err := s.ownAttempt(ctx, id, attemptID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if a.Status != StatusInProgress {
		return AnswerOutcome{}, apperr.New(apperr.ErrInvalidState, "attempt is already completed")
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if q.ExamID != a.ExamID {
		return AnswerOutcome{}, apperr.Validation("question does not belong to this exam")
	}

	text := ""
	if answer != nil {
		text = *answer
	}
	res := s.grader.Grade(gradingQ(q), text, answer != nil)
	err = s.store.UpsertAnswer(ctx, AttemptAnswer{
		AttemptID:     a.ID,
		QuestionID:    q.ID,
		AnswerText:    text,
		IsCorrect:     res.IsCorrect,
		MarksObtained: res.Marks,
		AnsweredAt:    s.now(),
	})
	if err != nil {
		return AnswerOutcome{}, err
	}
	s.record(ctx, syncx.EventAnswerSaved, a.ID, map[string]any{"question_id": q.ID, "is_correct": res.IsCorrect})
	return AnswerOutcome{IsCorrect: res.IsCorrect, MarksObtained: res.Marks}, nil
}

// FinishAttempt completes the attempt with the sum of its marks. Finishing an
// already completed attempt returns it unchanged.
func (s *Service) FinishAttempt(ctx context.Context, id rbac.Identity, attemptID string) (Attempt, error) {
	if err := authorize(id, "exam:take"); err != nil {
		return Attempt{}, err
	}
	if _, err := s.ownAttempt(ctx, id, attemptID); err != nil {
		return Attempt{}, err
	}
	a, finished, err := s.store.FinishAttempt(ctx, attemptID, s.now())
	if err != nil {
		return Attempt{}, err
	}
	if finished {
		s.record(ctx, syncx.EventAttemptFinished, a.ID, map[string]any{
			"exam_id": a.ExamID, "user_id": a.UserID, "total_score": a.TotalScore,
		})
	}
	return a, nil
}

// GetResults returns the attempt and every recorded answer with its question.
func (s *Service) GetResults(ctx context.Context, id rbac.Identity, attemptID string) (Results, error) {
	if id.IsZero() {
		return Results{}, apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Results{}, err
	}
	if a.UserID != id.UserID && !id.Can("attempt:view-all") {
		return Results{}, apperr.Forbidden("attempt belongs to another user")
	}
	answers, err := s.store.ListAnswerReviews(ctx, a.ID)
	if err != nil {
		return Results{}, err
	}
	return Results{Attempt: a, Answers: answers}, nil
}

func (s *Service) ListAttempts(ctx context.Context, id rbac.Identity, opts AttemptListOpts) ([]Attempt, error) {
	if id.IsZero() {
		return nil, apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	if !id.Can("attempt:view-all") {
		opts.UserID = id.UserID
	}
	if opts.Status != "" && opts.Status != StatusInProgress && opts.Status != StatusCompleted {
		return nil, apperr.Validation("status must be in_progress or completed")
	}
	return s.store.ListAttempts(ctx, opts)
}

// SubmitWholeExam grades a full answer map in one call and stores a result
// row. Only mcq questions contribute; answers that are not strings never score.
func (s *Service) SubmitWholeExam(ctx context.Context, id rbac.Identity, examID string, answers map[string]any) (ExamResult, error) {
	if err := authorize(id, "exam:take"); err != nil {
		return ExamResult{}, err
	}
	if answers == nil {
		return ExamResult{}, apperr.Validation("answers are required")
	}
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return ExamResult{}, err
	}
	qs, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return ExamResult{}, err
	}
	results := make([]grading.Result, 0, len(qs))
	for _, q := range qs {
		text, ok := answers[q.ID].(string)
		results = append(results, s.grader.Grade(gradingQ(q), text, ok))
	}

	r := ExamResult{
		ID:          uuid.NewString(),
		ExamID:      examID,
		UserID:      id.UserID,
		Answers:     answers,
		TotalScore:  grading.Total(results...),
		SubmittedAt: s.now().Truncate(time.Second),
	}
	if err := s.store.InsertResult(ctx, r); err != nil {
		return ExamResult{}, err
	}
	s.record(ctx, syncx.EventExamSubmitted, r.ID, map[string]any{
		"exam_id": examID, "user_id": id.UserID, "total_score": r.TotalScore,
	})
	return r, nil
}

func (s *Service) ownAttempt(ctx context.Context, id rbac.Identity, attemptID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != id.UserID {
		return Attempt{}, apperr.Forbidden("attempt belongs to another user")
	}
	return a, nil
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if err := s.events.Record(ctx, typ, key, data); err != nil {
		slog.WarnContext(ctx, "record event", "type", typ, "key", key, "err", err)
	}
}

func gradingQ(q Question) grading.Q {
	return grading.Q{Type: q.Type, Marks: q.Marks, CorrectAnswer: q.CorrectAnswer}
}
