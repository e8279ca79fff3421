package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/audit"
	"github.com/examforge/examportal/internal/grading"
	"github.com/examforge/examportal/internal/rbac"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// ---- exams ----

func (s *SQLStore) PutExam(ctx context.Context, e Exam) (Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	if e.DurationMinutes < 1 {
		e.DurationMinutes = 5
	}
	createdBy := sql.NullString{String: e.CreatedBy, Valid: e.CreatedBy != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id,title,description,exam_date,total_marks,duration_minutes,created_by,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.Title, e.Description, e.Date, e.TotalMarks, e.DurationMinutes, createdBy, e.CreatedAt)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) UpdateExam(ctx context.Context, e Exam) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exams SET title=$1, description=$2, exam_date=$3, total_marks=$4, duration_minutes=$5 WHERE id=$6`,
		e.Title, e.Description, e.Date, e.TotalMarks, e.DurationMinutes, e.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,exam_date,total_marks,duration_minutes,created_by,created_at
		 FROM exams WHERE id=$1`, id)
	return scanExam(row)
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	// questions, attempts and their answers go with it (FK cascade)
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return audit.Append(ctx, s.db, audit.EventExamDeleted, id, "{}")
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]Exam, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id,title,description,exam_date,total_marks,duration_minutes,created_by,created_at FROM exams`
	args := []any{}
	if opts.ViewerRole == string(rbac.RoleTeacher) {
		q += ` WHERE created_by=$1`
		args = append(args, opts.ViewerID)
	}
	q += fmt.Sprintf(` ORDER BY exam_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- questions ----

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Marks < 1 {
		q.Marks = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id,exam_id,question_text,option1,option2,option3,option4,correct_option,marks)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.ExamID, q.Text, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.Marks)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET question_text=$1, option1=$2, option2=$3, option3=$4, option4=$5, correct_option=$6, marks=$7
		 WHERE id=$8`,
		q.Text, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.Marks, q.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,exam_id,question_text,option1,option2,option3,option4,correct_option,marks
		 FROM questions WHERE id=$1`, id)
	var q Question
	err := row.Scan(&q.ID, &q.ExamID, &q.Text, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectOption, &q.Marks)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.ErrNotFound
	}
	return q, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) ListQuestions(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,exam_id,question_text,option1,option2,option3,option4,correct_option,marks
		 FROM questions WHERE exam_id=$1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectOption, &q.Marks); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- attempts ----

func (s *SQLStore) SubmitAttempt(ctx context.Context, studentID, examID string, selections map[string]int) (Attempt, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.ErrNotFound
		}
		return Attempt{}, err
	}

	questions, err := s.ListQuestions(ctx, examID)
	if err != nil {
		return Attempt{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	a := Attempt{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		ExamID:      examID,
		SubmittedAt: time.Now().Unix(),
	}
	// the attempt row exists even when no answers were supplied
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id,student_id,exam_id,submitted_at,score) VALUES ($1,$2,$3,$4,0)`,
		a.ID, a.StudentID, a.ExamID, a.SubmittedAt); err != nil {
		return Attempt{}, err
	}

	gqs := make([]grading.Q, len(questions))
	for i, q := range questions {
		gqs[i] = grading.Q{ID: q.ID, CorrectOption: q.CorrectOption, Marks: q.Marks}
		sel, ok := selections[q.ID]
		if !ok {
			continue // unanswered, implicitly wrong
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO answers (id,attempt_id,question_id,selected_option) VALUES ($1,$2,$3,$4)`,
			uuid.NewString(), a.ID, q.ID, sel); err != nil {
			return Attempt{}, err
		}
	}

	outcome := grading.Grade(gqs, selections)
	a.Score = outcome.Score
	if _, err = tx.ExecContext(ctx, `UPDATE attempts SET score=$1 WHERE id=$2`, a.Score, a.ID); err != nil {
		return Attempt{}, err
	}

	data, _ := json.Marshal(map[string]any{
		"exam_id": examID, "student_id": studentID,
		"correct": outcome.Correct, "total": outcome.Total, "score": outcome.Score,
	})
	if err = audit.Append(ctx, tx, audit.EventAttemptSubmitted, a.ID, string(data)); err != nil {
		return Attempt{}, err
	}

	if err = tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,student_id,exam_id,submitted_at,score FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) GetStudentAttempt(ctx context.Context, id, studentID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,student_id,exam_id,submitted_at,score FROM attempts WHERE id=$1 AND student_id=$2`,
		id, studentID)
	return scanAttempt(row)
}

func (s *SQLStore) ListStudentAttempts(ctx context.Context, studentID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,student_id,exam_id,submitted_at,score FROM attempts
		 WHERE student_id=$1 ORDER BY submitted_at DESC, id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func (s *SQLStore) DeleteStudentAttempt(ctx context.Context, id, studentID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE id=$1 AND student_id=$2`, id, studentID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return audit.Append(ctx, s.db, audit.EventAttemptDeleted, id, "{}")
}

func (s *SQLStore) ListExamAttempts(ctx context.Context, examID string, f SubmissionFilter) ([]Attempt, error) {
	q := `SELECT id,student_id,exam_id,submitted_at,score FROM attempts WHERE exam_id=$1`
	args := []any{examID}
	if f.ScoreMin != nil {
		args = append(args, *f.ScoreMin)
		q += fmt.Sprintf(` AND score >= $%d`, len(args))
	}
	if f.DateFrom != nil {
		args = append(args, f.DateFrom.Unix())
		q += fmt.Sprintf(` AND submitted_at >= $%d`, len(args))
	}
	q += ` ORDER BY submitted_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]AnswerDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.selected_option,
		        q.id, q.exam_id, q.question_text, q.option1, q.option2, q.option3, q.option4, q.correct_option, q.marks
		 FROM answers a JOIN questions q ON q.id = a.question_id
		 WHERE a.attempt_id=$1 ORDER BY q.id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AnswerDetail{}
	for rows.Next() {
		var d AnswerDetail
		if err := rows.Scan(
			&d.ID, &d.AttemptID, &d.QuestionID, &d.SelectedOption,
			&d.Question.ID, &d.Question.ExamID, &d.Question.Text,
			&d.Question.Option1, &d.Question.Option2, &d.Question.Option3, &d.Question.Option4,
			&d.Question.CorrectOption, &d.Question.Marks,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- scan helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (Exam, error) {
	var e Exam
	var createdBy sql.NullString
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.TotalMarks, &e.DurationMinutes, &createdBy, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, apperr.ErrNotFound
	}
	if err != nil {
		return Exam{}, err
	}
	e.CreatedBy = createdBy.String
	return e, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	err := row.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.SubmittedAt, &a.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.ErrNotFound
	}
	return a, err
}

func collectAttempts(rows *sql.Rows) ([]Attempt, error) {
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

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
