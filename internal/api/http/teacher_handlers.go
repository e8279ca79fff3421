package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/profile"
	"github.com/examforge/examportal/internal/rbac"
)

// TeacherDashboardHandler aggregates the teacher's exams with question and
// submission counts. A freshly created profile sends the teacher to the
// profile editor first.
func TeacherDashboardHandler(profiles *profile.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		prof, created, err := profiles.GetOrCreate(r.Context(), profile.KindTeacher, p.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if created {
			http.Redirect(w, r, "/teacher/profile", http.StatusSeeOther)
			return
		}
		dash, err := profiles.TeacherStats(r.Context(), p.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": prof, "dashboard": dash})
	}
}

// ViewSubmissionsHandler lists attempts for an owned exam, with optional
// ?score_min= and ?date_from=YYYY-MM-DD filters (inclusive, AND-composed).
func ViewSubmissionsHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		var f exam.SubmissionFilter
		if s := r.URL.Query().Get("score_min"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				writeErr(w, r, apperr.ErrValidation)
				return
			}
			f.ScoreMin = &v
		}
		if s := r.URL.Query().Get("date_from"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				writeErr(w, r, apperr.ErrValidation)
				return
			}
			f.DateFrom = &t
		}
		attempts, err := engine.Submissions(r.Context(), p, chi.URLParam(r, "examID"), f)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, attempts)
	}
}

func ViewStudentAnswersHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		attempt, answers, err := engine.StudentAnswers(r.Context(), p, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempt": attempt, "answers": answers})
	}
}

func TeacherProfileHandler(profiles *profile.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		prof, _, err := profiles.GetOrCreate(r.Context(), profile.KindTeacher, p.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prof)
	}
}

func UpdateTeacherProfileHandler(profiles *profile.Store) http.HandlerFunc {
	return updateProfileHandler(profiles, profile.KindTeacher)
}

// DeleteTeacherProfileHandler removes the teacher's profile and account in
// one go; everything the account owns follows by cascade.
func DeleteTeacherProfileHandler(profiles *profile.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		if err := profiles.DeleteTeacherAccount(r.Context(), p.ID); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "redirect": "/"})
	}
}
