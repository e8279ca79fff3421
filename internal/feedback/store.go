// Package feedback stores contact-form messages for the admin to read.
package feedback

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, f Feedback) (Feedback, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id,name,email,subject,message,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.Name, f.Email, f.Subject, f.Message, f.CreatedAt)
	if err != nil {
		return Feedback{}, err
	}
	return f, nil
}

func (s *Store) List(ctx context.Context) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,email,subject,message,created_at FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Subject, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
