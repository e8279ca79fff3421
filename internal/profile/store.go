// Package profile stores the per-role profile records. Profiles are created
// lazily: the first profile-touching request upserts an empty row instead of
// signup doing it.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/rbac"
)

type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
)

type Profile struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	PicturePath string `json:"picture_path,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func table(k Kind) string {
	if k == KindTeacher {
		return "teacher_profiles"
	}
	return "student_profiles"
}

// GetOrCreate is the idempotent lazy-creation entry point. The bool reports
// whether the row was created by this call.
func (s *Store) GetOrCreate(ctx context.Context, k Kind, userID string) (Profile, bool, error) {
	p, err := s.get(ctx, k, userID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return Profile{}, false, err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id) VALUES ($1)`, table(k)), userID)
	if err != nil {
		// concurrent first access may have won the insert
		if p, gerr := s.get(ctx, k, userID); gerr == nil {
			return p, false, nil
		}
		return Profile{}, false, err
	}
	return Profile{UserID: userID}, true, nil
}

func (s *Store) get(ctx context.Context, k Kind, userID string) (Profile, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT user_id,full_name,phone,email,picture_path,bio FROM %s WHERE user_id=$1`, table(k)),
		userID)
	var p Profile
	err := row.Scan(&p.UserID, &p.FullName, &p.Phone, &p.Email, &p.PicturePath, &p.Bio)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, apperr.ErrNotFound
	}
	return p, err
}

// Update writes profile fields after GetOrCreate established the row.
func (s *Store) Update(ctx context.Context, k Kind, p Profile) error {
	if _, _, err := s.GetOrCreate(ctx, k, p.UserID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET full_name=$1, phone=$2, email=$3, picture_path=$4, bio=$5 WHERE user_id=$6`, table(k)),
		p.FullName, p.Phone, p.Email, p.PicturePath, p.Bio, p.UserID)
	return err
}

// DeleteTeacherAccount removes the teacher's profile together with the user
// row; everything hanging off the user follows by cascade.
func (s *Store) DeleteTeacherAccount(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_profiles WHERE user_id=$1`, userID); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1 AND role=$2`, userID, string(rbac.RoleTeacher))
	if err != nil {
		return err
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return err
	}
	if n == 0 {
		err = apperr.ErrNotFound
		return err
	}
	return tx.Commit()
}

// StudentStats summarizes a student's attempt history for the profile page.
type StudentStats struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
}

func (s *Store) StudentStats(ctx context.Context, userID string) (StudentStats, error) {
	var st StudentStats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(score) FROM attempts WHERE student_id=$1`, userID).
		Scan(&st.TotalAttempts, &avg)
	if err != nil {
		return StudentStats{}, err
	}
	st.AverageScore = avg.Float64 // 0 when no attempts
	return st, nil
}

// ExamSummary is one row of the teacher dashboard.
type ExamSummary struct {
	ExamID          string `json:"exam_id"`
	Title           string `json:"title"`
	QuestionCount   int    `json:"question_count"`
	SubmissionCount int    `json:"submission_count"`
}

type TeacherDashboard struct {
	Exams            []ExamSummary `json:"exams"`
	TotalQuestions   int           `json:"total_questions"`
	TotalSubmissions int           `json:"total_submissions"`
}

func (s *Store) TeacherStats(ctx context.Context, userID string) (TeacherDashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.title,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        (SELECT COUNT(*) FROM attempts a WHERE a.exam_id = e.id)
		 FROM exams e WHERE e.created_by=$1 ORDER BY e.exam_date DESC, e.id DESC`, userID)
	if err != nil {
		return TeacherDashboard{}, err
	}
	defer rows.Close()
	d := TeacherDashboard{Exams: []ExamSummary{}}
	for rows.Next() {
		var es ExamSummary
		if err := rows.Scan(&es.ExamID, &es.Title, &es.QuestionCount, &es.SubmissionCount); err != nil {
			return TeacherDashboard{}, err
		}
		d.Exams = append(d.Exams, es)
		d.TotalQuestions += es.QuestionCount
		d.TotalSubmissions += es.SubmissionCount
	}
	return d, rows.Err()
}
