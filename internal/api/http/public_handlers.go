package http

import (
	"net/http"

	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/feedback"
)

// HomeHandler is the public landing listing: all exams newest first, paged
// with ?limit= and ?offset=.
func HomeHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context(), exam.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 3),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type contactForm struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

func ContactHandler(store *feedback.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		f, err := store.Create(r.Context(), feedback.Feedback{
			Name:    req.Name,
			Email:   req.Email,
			Subject: req.Subject,
			Message: req.Message,
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	}
}
