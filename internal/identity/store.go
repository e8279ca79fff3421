// Package identity manages user accounts. A role is fixed at signup and
// never changes through the management surface.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/rbac"
)

const bcryptCost = 12

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	CreatedAt int64     `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, username, email, password string, role rbac.Role) (User, error) {
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password required", apperr.ErrValidation)
	}
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("%w: invalid role %q", apperr.ErrValidation, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Username: username, Email: email, Role: role, CreatedAt: time.Now().Unix()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id,username,email,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.Email, string(hash), string(u.Role), u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate checks a username/password pair. Both unknown usernames and
// wrong passwords come back as the same error.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,created_at FROM users WHERE username=$1`, username)
	var u User
	var hash, role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, apperr.ErrNotFound
	}
	u.Role = rbac.Role(role)
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,role,created_at FROM users WHERE id=$1`, id)
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.ErrNotFound
	}
	u.Role = rbac.Role(role)
	return u, err
}

// List returns every non-admin account, for the user-management screen.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,username,email,role,created_at FROM users WHERE role <> $1 ORDER BY username`,
		string(rbac.RoleAdmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = rbac.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update changes username/email and, when password is non-empty, the hash.
// The role is untouched on purpose.
func (s *Store) Update(ctx context.Context, id, username, email, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username required", apperr.ErrValidation)
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return err
		}
		res, err := s.db.ExecContext(ctx,
			`UPDATE users SET username=$1, email=$2, password_hash=$3 WHERE id=$4`,
			username, email, string(hash), id)
		if err != nil {
			return err
		}
		return requireRow(res)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username=$1, email=$2 WHERE id=$3`, username, email, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an account. Admin accounts cannot be deleted through the
// management surface.
func (s *Store) Delete(ctx context.Context, id string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == rbac.RoleAdmin {
		return fmt.Errorf("%w: cannot delete admin user", apperr.ErrForbidden)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password required", apperr.ErrValidation)
	}
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: incorrect old password", apperr.ErrForbidden)
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(newHash), id)
	return err
}

// SeedAdmin ensures the bootstrap admin account exists. The hash comes from
// config, not a plaintext password.
func (s *Store) SeedAdmin(ctx context.Context, username, email, passHash string) error {
	var exist int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, username).Scan(&exist)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id,username,email,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), username, email, passHash, string(rbac.RoleAdmin), time.Now().Unix())
	return err
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
