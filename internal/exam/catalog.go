package exam

import (
	"context"
	"sort"
)

// Catalog is the read side over exams and their questions.
type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog { return &Catalog{store: store} }

func (c *Catalog) ListExams(ctx context.Context) ([]Exam, error) {
	return c.store.ListExams(ctx)
}

// Exam returns the exam with its ordered questions, or NotFound.
func (c *Catalog) Exam(ctx context.Context, id string, withAnswers bool) (ExamWithQuestions, error) {
	e, err := c.store.GetExam(ctx, id)
	if err != nil {
		return ExamWithQuestions{}, err
	}
	qs, err := c.Questions(ctx, id, withAnswers)
	if err != nil {
		return ExamWithQuestions{}, err
	}
	return ExamWithQuestions{Exam: e, Questions: qs}, nil
}

// Questions returns the exam's questions ordered by order index. It does not
// check that the exam exists; an unknown id yields an empty list.
func (c *Catalog) Questions(ctx context.Context, examID string, withAnswers bool) ([]Question, error) {
	qs, err := c.store.ListQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderIndex < qs[j].OrderIndex })
	if !withAnswers {
		for i := range qs {
			qs[i].CorrectAnswer = nil
		}
	}
	return qs, nil
}
