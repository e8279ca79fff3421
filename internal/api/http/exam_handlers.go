package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/rbac"
)

type examForm struct {
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	TotalMarks      int    `json:"total_marks" validate:"min=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=1"`
}

// ListExamsHandler scopes the catalog by role: teachers see their own exams,
// admins see everything.
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		list, err := store.ListExams(r.Context(), exam.ListOpts{
			ViewerID:   p.ID,
			ViewerRole: string(p.Role),
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func CreateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		var req examForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		e := exam.Exam{
			Title:           req.Title,
			Description:     req.Description,
			Date:            req.Date,
			TotalMarks:      req.TotalMarks,
			DurationMinutes: req.DurationMinutes,
			CreatedBy:       p.ID,
		}
		created, err := store.PutExam(r.Context(), e)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateExamHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		ex, err := engine.OwnedExam(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		var req examForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		ex.Title = req.Title
		ex.Description = req.Description
		ex.Date = req.Date
		ex.TotalMarks = req.TotalMarks
		ex.DurationMinutes = req.DurationMinutes
		if err := store.UpdateExam(r.Context(), ex); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ex)
	}
}

func DeleteExamHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		ex, err := engine.OwnedExam(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if err := store.DeleteExam(r.Context(), ex.ID); err != nil {
			writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type questionForm struct {
	Text          string `json:"question_text" validate:"required"`
	Option1       string `json:"option1" validate:"required,max=255"`
	Option2       string `json:"option2" validate:"required,max=255"`
	Option3       string `json:"option3" validate:"required,max=255"`
	Option4       string `json:"option4" validate:"required,max=255"`
	CorrectOption int    `json:"correct_option" validate:"required,min=1,max=4"`
	Marks         int    `json:"marks" validate:"min=1"`
}

func ListQuestionsHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		ex, err := engine.OwnedExam(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		qs, err := store.ListQuestions(r.Context(), ex.ID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exam": ex, "questions": qs})
	}
}

func CreateQuestionHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		ex, err := engine.OwnedExam(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		var req questionForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		q := exam.Question{
			ExamID:        ex.ID,
			Text:          req.Text,
			Option1:       req.Option1,
			Option2:       req.Option2,
			Option3:       req.Option3,
			Option4:       req.Option4,
			CorrectOption: req.CorrectOption,
			Marks:         req.Marks,
		}
		created, err := store.PutQuestion(r.Context(), q)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// ownership of a question follows its parent exam
func UpdateQuestionHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if _, err := engine.OwnedExam(r.Context(), p, q.ExamID); err != nil {
			writeErr(w, r, err)
			return
		}
		var req questionForm
		if err := decodeValid(r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		q.Text = req.Text
		q.Option1 = req.Option1
		q.Option2 = req.Option2
		q.Option3 = req.Option3
		q.Option4 = req.Option4
		q.CorrectOption = req.CorrectOption
		q.Marks = req.Marks
		if err := store.UpdateQuestion(r.Context(), q); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(engine *exam.Engine, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if _, err := engine.OwnedExam(r.Context(), p, q.ExamID); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := store.DeleteQuestion(r.Context(), q.ID); err != nil {
			writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
