package exam

import "context"

type Store interface {
	PutExam(ctx context.Context, e Exam) (Exam, error)
	UpdateExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	DeleteExam(ctx context.Context, id string) error
	ListExams(ctx context.Context, opts ListOpts) ([]Exam, error)

	PutQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, examID string) ([]Question, error)

	// SubmitAttempt creates the attempt, persists one answer row per
	// answered question, grades, and stores the score — all in one
	// transaction. Re-submission creates a fresh independent attempt.
	SubmitAttempt(ctx context.Context, studentID, examID string, selections map[string]int) (Attempt, error)

	// GetStudentAttempt filters by owner; a mismatch is a plain not-found.
	GetStudentAttempt(ctx context.Context, id, studentID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListStudentAttempts(ctx context.Context, studentID string) ([]Attempt, error)
	DeleteStudentAttempt(ctx context.Context, id, studentID string) error
	ListExamAttempts(ctx context.Context, examID string, f SubmissionFilter) ([]Attempt, error)
	ListAnswers(ctx context.Context, attemptID string) ([]AnswerDetail, error)
}
