package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/examforge/examportal/internal/audit"
	"github.com/examforge/examportal/internal/auth"
	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/feedback"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/profile"
	"github.com/examforge/examportal/internal/rbac"
)

type Deps struct {
	Log      *logrus.Logger
	Auth     *auth.Service
	Users    *identity.Store
	Store    exam.Store
	Engine   *exam.Engine
	Profiles *profile.Store
	Feedback *feedback.Store
	Events   *audit.Repo

	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Principal(d.Auth))

	// public
	r.Get("/", HomeHandler(d.Store))
	r.Post("/contact", ContactHandler(d.Feedback))
	r.Post("/auth/signup/admin", SignupHandler(d.Users, rbac.RoleAdmin))
	r.Post("/auth/signup/teacher", SignupHandler(d.Users, rbac.RoleTeacher))
	r.Post("/auth/signup/student", SignupHandler(d.Users, rbac.RoleStudent))
	r.Post("/auth/login", LoginHandler(d.Users, d.Auth))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	// any authenticated account
	r.Group(func(pr chi.Router) {
		pr.Use(rbac.Require(rbac.AnyAuthenticated))
		pr.Post("/users/change-password", ChangePasswordHandler(d.Users))
	})

	// admin management surface: wrong role is an explicit 403
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(rbac.Require(rbac.AdminOnly))
		ar.Get("/dashboard", AdminDashboardHandler())
		ar.Get("/users", ListUsersHandler(d.Users))
		ar.Post("/users", CreateUserHandler(d.Users))
		ar.Put("/users/{userID}", UpdateUserHandler(d.Users))
		ar.Delete("/users/{userID}", DeleteUserHandler(d.Users))
		ar.Get("/feedback", ListFeedbackHandler(d.Feedback))
		ar.Get("/events", ListEventsHandler(d.Events))
	})

	// exam & question authoring, shared by admins and teachers
	r.Group(func(er chi.Router) {
		er.Use(rbac.RequireOrRedirect(rbac.AdminOrTeacher))
		er.Get("/exams", ListExamsHandler(d.Store))
		er.Post("/exams", CreateExamHandler(d.Store))
		er.Put("/exams/{examID}", UpdateExamHandler(d.Engine, d.Store))
		er.Delete("/exams/{examID}", DeleteExamHandler(d.Engine, d.Store))
		er.Get("/exams/{examID}/questions", ListQuestionsHandler(d.Engine, d.Store))
		er.Post("/exams/{examID}/questions", CreateQuestionHandler(d.Engine, d.Store))
		er.Put("/questions/{questionID}", UpdateQuestionHandler(d.Engine, d.Store))
		er.Delete("/questions/{questionID}", DeleteQuestionHandler(d.Engine, d.Store))
	})

	// teacher dashboard and review screens
	r.Route("/teacher", func(tr chi.Router) {
		tr.Use(rbac.RequireOrRedirect(rbac.TeacherOnly))
		tr.Get("/dashboard", TeacherDashboardHandler(d.Profiles))
		tr.Get("/exams/{examID}/submissions", ViewSubmissionsHandler(d.Engine))
		tr.Get("/attempts/{attemptID}/answers", ViewStudentAnswersHandler(d.Engine))
		tr.Get("/profile", TeacherProfileHandler(d.Profiles))
		tr.Put("/profile", UpdateTeacherProfileHandler(d.Profiles))
		tr.Post("/profile/delete", DeleteTeacherProfileHandler(d.Profiles))
	})

	// student workflow: any authenticated account, as in the original portal
	r.Route("/student", func(sr chi.Router) {
		sr.Use(rbac.RequireOrRedirect(rbac.AnyAuthenticated))
		sr.Get("/dashboard", StudentDashboardHandler())
		sr.Get("/exams", StudentExamListHandler(d.Store))
		sr.Get("/exams/{examID}/attempt", AttemptExamHandler(d.Engine))
		sr.Post("/exams/{examID}/submit", SubmitExamHandler(d.Engine))
		sr.Get("/exams/{examID}/submit", SubmitExamRedirectHandler())
		sr.Get("/exams/{examID}/instructions", ExamInstructionsHandler(d.Engine, d.Store))
		sr.Get("/attempts", ExamHistoryHandler(d.Engine))
		sr.Get("/attempts/{attemptID}", ExamResultHandler(d.Engine))
		sr.Post("/attempts/{attemptID}/delete", DeleteAttemptHandler(d.Engine))
		sr.Get("/profile", StudentProfileHandler(d.Profiles))
		sr.Put("/profile", UpdateStudentProfileHandler(d.Profiles))
	})

	return r
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
