package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/profile"
	"github.com/examforge/examportal/internal/rbac"
)

const pathStudentExams = "/student/exams"

// StudentDashboardHandler is the student landing screen; other roles are
// bounced back to login, mirroring the portal's dashboard behavior.
func StudentDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		if p.Role != rbac.RoleStudent {
			http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"username": p.Username, "role": string(p.Role)})
	}
}

// StudentExamListHandler shows every exam to students, newest first.
func StudentExamListHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context(), exam.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func AttemptExamHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet, err := engine.RenderAttempt(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	}
}

// SubmitExamHandler grades a submission. The answer map keys are question
// IDs, the values the selected option numbers.
func SubmitExamHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		var req struct {
			Answers map[string]json.Number `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, r, apperr.ErrValidation)
			return
		}
		selections := make(map[string]int, len(req.Answers))
		for qid, raw := range req.Answers {
			sel, err := strconv.Atoi(raw.String())
			if err != nil {
				writeErr(w, r, fmt.Errorf("%w: non-numeric option for question %s", apperr.ErrValidation, qid))
				return
			}
			selections[qid] = sel
		}
		a, err := engine.Submit(r.Context(), p, chi.URLParam(r, "examID"), selections)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"attempt_id": a.ID,
			"redirect":   "/student/attempts/" + a.ID,
		})
	}
}

// SubmitExamRedirectHandler answers non-POST hits on the submit path with a
// plain navigation back to the exam list, never an error.
func SubmitExamRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pathStudentExams, http.StatusSeeOther)
	}
}

func ExamResultHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		view, err := engine.Result(r.Context(), p, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func ExamHistoryHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		attempts, err := engine.History(r.Context(), p)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, attempts)
	}
}

func DeleteAttemptHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		if err := engine.DeleteAttempt(r.Context(), p, chi.URLParam(r, "attemptID")); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "deleted",
			"redirect": "/student/attempts",
		})
	}
}

// ExamInstructionsHandler shows the exam blurb plus the student's latest
// attempt at it, if any.
func ExamInstructionsHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		ex, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		resp := map[string]any{"exam": ex}
		latest, err := engine.LatestAttempt(r.Context(), p, ex.ID)
		switch {
		case err == nil:
			resp["latest_attempt"] = latest
		case errors.Is(err, apperr.ErrNotFound):
			resp["latest_attempt"] = nil
		default:
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// StudentProfileHandler lazily creates the profile on first access and
// reports attempt stats alongside it.
func StudentProfileHandler(profiles *profile.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		prof, _, err := profiles.GetOrCreate(r.Context(), profile.KindStudent, p.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		stats, err := profiles.StudentStats(r.Context(), p.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": prof, "stats": stats})
	}
}

type profileForm struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"max=15"`
	Email       string `json:"email" validate:"omitempty,email"`
	PicturePath string `json:"picture_path"`
	Bio         string `json:"bio"`
}

func UpdateStudentProfileHandler(profiles *profile.Store) http.HandlerFunc {
	return updateProfileHandler(profiles, profile.KindStudent)
}

func updateProfileHandler(profiles *profile.Store, kind profile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		var req profileForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		prof := profile.Profile{
			UserID:      p.ID,
			FullName:    req.FullName,
			Phone:       req.Phone,
			Email:       req.Email,
			PicturePath: req.PicturePath,
			Bio:         req.Bio,
		}
		if err := profiles.Update(r.Context(), kind, prof); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prof)
	}
}
