package http

import (
	"net/http"

	"github.com/examforge/examportal/internal/auth"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/rbac"
)

type signupReq struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignupHandler creates an account with a fixed role; the route, not the
// payload, decides which role is assigned.
func SignupHandler(users *identity.Store, role rbac.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupReq
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Email, req.Password, role)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler exchanges credentials for a bearer token and tells the client
// which dashboard to land on for the account's role.
func LoginHandler(users *identity.Store, authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		tok, err := authSvc.IssueToken(rbac.Principal{ID: u.ID, Username: u.Username, Role: u.Role})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		var landing string
		switch u.Role {
		case rbac.RoleAdmin:
			landing = "/admin/dashboard"
		case rbac.RoleTeacher:
			landing = "/teacher/dashboard"
		default:
			landing = "/student/dashboard"
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token": tok,
			"role":         string(u.Role),
			"redirect":     landing,
		})
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func ChangePasswordHandler(users *identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		var req changePasswordReq
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := users.ChangePassword(r.Context(), p.ID, req.OldPassword, req.NewPassword); err != nil {
			writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
