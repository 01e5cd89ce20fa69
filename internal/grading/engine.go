package grading

const (
	TypeMCQ  = "mcq"
	TypeText = "text"
)

// Q is the view of a question needed for grading.
type Q struct {
	Type          string
	Marks         int
	CorrectAnswer *string // nil when the question has no key
}

// Result is the outcome of grading a single answer.
type Result struct {
	IsCorrect bool
	Marks     int
}

// Strategy grades answers for one question type.
type Strategy interface {
	Grade(q Q, answer string) Result
}

// Grader routes by question type. Types without a strategy score zero.
type Grader struct {
	strategies map[string]Strategy
}

func NewDefaultGrader() *Grader {
	return &Grader{
		strategies: map[string]Strategy{
			TypeMCQ: mcqStrategy{},
		},
	}
}

// Grade scores one answer. An absent or empty answer is never correct.
func (g *Grader) Grade(q Q, answer string, present bool) Result {
	if !present || answer == "" {
		return Result{}
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}
	}
	return s.Grade(q, answer)
}

// Autogradable reports whether the type has a grading rule.
func (g *Grader) Autogradable(typ string) bool {
	_, ok := g.strategies[typ]
	return ok
}

// mcqStrategy is an exact, case-sensitive match against the key.
type mcqStrategy struct{}

func (mcqStrategy) Grade(q Q, answer string) Result {
	if q.CorrectAnswer == nil || answer != *q.CorrectAnswer {
		return Result{}
	}
	return Result{IsCorrect: true, Marks: q.Marks}
}

// Total sums awarded marks.
func Total(results ...Result) int {
	total := 0
	for _, r := range results {
		total += r.Marks
	}
	return total
}
