package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/audit"
	"github.com/examforge/examportal/internal/feedback"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/rbac"
)

func AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"username": p.Username, "role": string(p.Role)})
	}
}

// ListUsersHandler shows every managed account; admin rows are excluded from
// the management surface.
func ListUsersHandler(users *identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateUserHandler adds a student or teacher account. Any other ?role= is
// an explicit denial, not a fallback.
func CreateUserHandler(users *identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.Role(r.URL.Query().Get("role"))
		if role != rbac.RoleStudent && role != rbac.RoleTeacher {
			writeErr(w, r, fmt.Errorf("%w: invalid role", apperr.ErrForbidden))
			return
		}
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

type userUpdateForm struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

func UpdateUserHandler(users *identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userUpdateForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		id := chi.URLParam(r, "userID")
		if err := users.Update(r.Context(), id, req.Username, req.Email, req.Password); err != nil {
			writeErr(w, r, err)
			return
		}
		u, err := users.GetByID(r.Context(), id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func DeleteUserHandler(users *identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := users.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
			writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListFeedbackHandler(store *feedback.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ListEventsHandler(events *audit.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := events.Recent(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
