package exam

import (
	"context"
	"fmt"
	"math"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/grading"
	"github.com/examforge/examportal/internal/rbac"
)

// Engine drives the attempt workflow: render, submit, review. It owns every
// ownership decision so the HTTP layer never re-derives them.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine { return &Engine{store: store} }

// CanMutate is the single ownership predicate for catalog mutation: admins
// may touch any exam, teachers only their own.
func CanMutate(p rbac.Principal, e Exam) bool {
	if p.Role == rbac.RoleAdmin {
		return true
	}
	return p.Role == rbac.RoleTeacher && p.ID != "" && e.CreatedBy == p.ID
}

// OwnedExam loads an exam and applies CanMutate. A role/ownership mismatch
// comes back as ErrNotOwner, which the boundary renders as a redirect to the
// exam list rather than an error.
func (e *Engine) OwnedExam(ctx context.Context, p rbac.Principal, examID string) (Exam, error) {
	ex, err := e.store.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, err
	}
	if !CanMutate(p, ex) {
		return Exam{}, apperr.ErrNotOwner
	}
	return ex, nil
}

// AttemptSheet is what the presentation layer needs to render an exam to a
// student: questions without answer keys, the achievable marks, and the
// advisory duration for a client-side timer.
type AttemptSheet struct {
	Exam            Exam       `json:"exam"`
	Questions       []Question `json:"questions"`
	TotalMarks      int        `json:"total_marks"`
	DurationMinutes int        `json:"duration_minutes"`
}

// RenderAttempt is read-only: no attempt row exists until submission.
func (e *Engine) RenderAttempt(ctx context.Context, examID string) (AttemptSheet, error) {
	ex, err := e.store.GetExam(ctx, examID)
	if err != nil {
		return AttemptSheet{}, err
	}
	qs, err := e.store.ListQuestions(ctx, examID)
	if err != nil {
		return AttemptSheet{}, err
	}
	total := grading.TotalMarks(gradingView(qs))
	for i := range qs {
		qs[i].CorrectOption = 0 // never leak the key to the attempt page
	}
	return AttemptSheet{Exam: ex, Questions: qs, TotalMarks: total, DurationMinutes: ex.DurationMinutes}, nil
}

// Submit validates the selections and hands off to the store's transactional
// submission. The server does not enforce the exam duration; the timer is
// advisory and a late submission is accepted.
func (e *Engine) Submit(ctx context.Context, p rbac.Principal, examID string, selections map[string]int) (Attempt, error) {
	for qid, sel := range selections {
		if !grading.ValidOption(sel) {
			return Attempt{}, fmt.Errorf("%w: option %d for question %s out of range", apperr.ErrValidation, sel, qid)
		}
	}
	return e.store.SubmitAttempt(ctx, p.ID, examID, selections)
}

// ResultView carries both the stored score and the totals recomputed from
// the per-answer rows, which are the authoritative records.
type ResultView struct {
	Attempt      Attempt        `json:"attempt"`
	Answers      []AnswerDetail `json:"answers"`
	TotalMarks   int            `json:"total_marks"`
	MarksEarned  int            `json:"marks_earned"`
	RoundedScore int            `json:"rounded_score"`
}

// Result retrieves an attempt for its owning student. A mismatched owner is
// indistinguishable from a missing attempt.
func (e *Engine) Result(ctx context.Context, p rbac.Principal, attemptID string) (ResultView, error) {
	a, err := e.store.GetStudentAttempt(ctx, attemptID, p.ID)
	if err != nil {
		return ResultView{}, err
	}
	answers, err := e.store.ListAnswers(ctx, a.ID)
	if err != nil {
		return ResultView{}, err
	}
	qs, err := e.store.ListQuestions(ctx, a.ExamID)
	if err != nil {
		return ResultView{}, err
	}
	selections := make(map[string]int, len(answers))
	for _, d := range answers {
		selections[d.QuestionID] = d.SelectedOption
	}
	gqs := gradingView(qs)
	return ResultView{
		Attempt:      a,
		Answers:      answers,
		TotalMarks:   grading.TotalMarks(gqs),
		MarksEarned:  grading.MarksEarned(gqs, selections),
		RoundedScore: int(math.Round(a.Score)),
	}, nil
}

func (e *Engine) History(ctx context.Context, p rbac.Principal) ([]Attempt, error) {
	return e.store.ListStudentAttempts(ctx, p.ID)
}

// LatestAttempt returns the student's most recent attempt for one exam, or
// ErrNotFound when they have not taken it yet.
func (e *Engine) LatestAttempt(ctx context.Context, p rbac.Principal, examID string) (Attempt, error) {
	attempts, err := e.store.ListStudentAttempts(ctx, p.ID)
	if err != nil {
		return Attempt{}, err
	}
	for _, a := range attempts {
		if a.ExamID == examID {
			return a, nil
		}
	}
	return Attempt{}, apperr.ErrNotFound
}

func (e *Engine) DeleteAttempt(ctx context.Context, p rbac.Principal, attemptID string) error {
	return e.store.DeleteStudentAttempt(ctx, attemptID, p.ID)
}

// Submissions lists attempts for an exam the teacher owns, optionally
// filtered by minimum score and minimum submission date.
func (e *Engine) Submissions(ctx context.Context, p rbac.Principal, examID string, f SubmissionFilter) ([]Attempt, error) {
	if _, err := e.OwnedExam(ctx, p, examID); err != nil {
		return nil, err
	}
	return e.store.ListExamAttempts(ctx, examID, f)
}

// StudentAnswers lists one attempt's answers with their questions for
// manual audit; the teacher must own the parent exam.
func (e *Engine) StudentAnswers(ctx context.Context, p rbac.Principal, attemptID string) (Attempt, []AnswerDetail, error) {
	a, err := e.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, nil, err
	}
	if _, err := e.OwnedExam(ctx, p, a.ExamID); err != nil {
		return Attempt{}, nil, err
	}
	answers, err := e.store.ListAnswers(ctx, a.ID)
	if err != nil {
		return Attempt{}, nil, err
	}
	return a, answers, nil
}

func gradingView(qs []Question) []grading.Q {
	out := make([]grading.Q, len(qs))
	for i, q := range qs {
		out[i] = grading.Q{ID: q.ID, CorrectOption: q.CorrectOption, Marks: q.Marks}
	}
	return out
}
