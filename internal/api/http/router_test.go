package http_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	api "github.com/examforge/examportal/internal/api/http"
	"github.com/examforge/examportal/internal/audit"
	"github.com/examforge/examportal/internal/auth"
	"github.com/examforge/examportal/internal/db"
	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/feedback"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/profile"
	"github.com/examforge/examportal/internal/rbac"
)

type testPortal struct {
	srv *httptest.Server
	dbh *sql.DB
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := exam.NewSQLStore(dbh)
	h := api.NewRouter(api.Deps{
		Log:         log,
		Auth:        auth.NewService("test-secret"),
		Users:       identity.NewStore(dbh),
		Store:       store,
		Engine:      exam.NewEngine(store),
		Profiles:    profile.NewStore(dbh),
		Feedback:    feedback.NewStore(dbh),
		Events:      audit.NewRepo(dbh),
		CORSOrigins: []string{"*"},
	})

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		dbh.Close()
	})
	return &testPortal{srv: srv, dbh: dbh}
}

// do issues a request without following redirects, so 303s stay observable.
func (p *testPortal) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, p.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// register signs an account up over the wire and returns its bearer token.
func (p *testPortal) register(t *testing.T, role rbac.Role, username string) string {
	t.Helper()
	resp := p.do(t, http.MethodPost, "/auth/signup/"+string(role), "", map[string]string{
		"username": username,
		"password": "pass-" + username,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: status %d", username, resp.StatusCode)
	}
	resp = p.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": "pass-" + username,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		Redirect    string `json:"redirect"`
	}
	decode(t, resp, &out)
	if out.AccessToken == "" {
		t.Fatalf("login %s returned no token", username)
	}
	return out.AccessToken
}

func TestLoginLandingPerRole(t *testing.T) {
	p := newTestPortal(t)
	for role, want := range map[rbac.Role]string{
		rbac.RoleAdmin:   "/admin/dashboard",
		rbac.RoleTeacher: "/teacher/dashboard",
		rbac.RoleStudent: "/student/dashboard",
	} {
		name := "user-" + string(role)
		resp := p.do(t, http.MethodPost, "/auth/signup/"+string(role), "", map[string]string{
			"username": name, "password": "secret1",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("signup %s: status %d", role, resp.StatusCode)
		}
		resp = p.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": name, "password": "secret1",
		})
		var out struct {
			Redirect string `json:"redirect"`
		}
		decode(t, resp, &out)
		if out.Redirect != want {
			t.Errorf("role %s landing = %q, want %q", role, out.Redirect, want)
		}
	}
}

func TestLoginBadCredentials(t *testing.T) {
	p := newTestPortal(t)
	resp := p.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "ghost", "password": "whatever",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGateForbiddenVersusRedirect(t *testing.T) {
	p := newTestPortal(t)
	teacher := p.register(t, rbac.RoleTeacher, "ted")
	student := p.register(t, rbac.RoleStudent, "alice")

	// wrong role on the admin surface is an explicit 403
	if resp := p.do(t, http.MethodGet, "/admin/users", teacher, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("teacher on /admin/users: status %d, want 403", resp.StatusCode)
	}
	// anonymous hit on a protected screen navigates to login
	resp := p.do(t, http.MethodGet, "/teacher/dashboard", "", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != rbac.PathLogin {
		t.Fatalf("anonymous dashboard: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	// student on the authoring surface is redirected, not 403d
	resp = p.do(t, http.MethodGet, "/exams", student, nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != rbac.PathLogin {
		t.Fatalf("student on /exams: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestExamLifecycleOverTheWire(t *testing.T) {
	p := newTestPortal(t)
	teacher := p.register(t, rbac.RoleTeacher, "ted")
	student := p.register(t, rbac.RoleStudent, "alice")

	resp := p.do(t, http.MethodPost, "/exams", teacher, map[string]any{
		"title":            "Networks 101",
		"description":      "subnetting",
		"date":             "2026-09-15",
		"duration_minutes": 20,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create exam: status %d", resp.StatusCode)
	}
	var ex exam.Exam
	decode(t, resp, &ex)

	var q1, q2 exam.Question
	resp = p.do(t, http.MethodPost, "/exams/"+ex.ID+"/questions", teacher, map[string]any{
		"question_text": "What is /24?", "option1": "a", "option2": "b", "option3": "c", "option4": "d",
		"correct_option": 2, "marks": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create q1: status %d", resp.StatusCode)
	}
	decode(t, resp, &q1)
	resp = p.do(t, http.MethodPost, "/exams/"+ex.ID+"/questions", teacher, map[string]any{
		"question_text": "What is ARP?", "option1": "a", "option2": "b", "option3": "c", "option4": "d",
		"correct_option": 3, "marks": 2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create q2: status %d", resp.StatusCode)
	}
	decode(t, resp, &q2)

	// attempt sheet must not carry the answer key
	resp = p.do(t, http.MethodGet, "/student/exams/"+ex.ID+"/attempt", student, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attempt sheet: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if bytes.Contains(raw, []byte("correct_option")) {
		t.Fatal("attempt sheet leaks correct_option")
	}
	var sheet struct {
		TotalMarks int `json:"total_marks"`
	}
	if err := json.Unmarshal(raw, &sheet); err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
	if sheet.TotalMarks != 3 {
		t.Fatalf("sheet total marks = %d, want 3", sheet.TotalMarks)
	}

	// q1 right, q2 wrong: 50%
	resp = p.do(t, http.MethodPost, "/student/exams/"+ex.ID+"/submit", student, map[string]any{
		"answers": map[string]int{q1.ID: 2, q2.ID: 1},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}
	var submitted struct {
		AttemptID string `json:"attempt_id"`
		Redirect  string `json:"redirect"`
	}
	decode(t, resp, &submitted)
	if submitted.Redirect != "/student/attempts/"+submitted.AttemptID {
		t.Fatalf("submit redirect = %q", submitted.Redirect)
	}

	resp = p.do(t, http.MethodGet, "/student/attempts/"+submitted.AttemptID, student, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result: status %d", resp.StatusCode)
	}
	var view exam.ResultView
	decode(t, resp, &view)
	if view.Attempt.Score != 50.0 || view.MarksEarned != 1 || view.TotalMarks != 3 {
		t.Fatalf("result = score %v earned %d total %d", view.Attempt.Score, view.MarksEarned, view.TotalMarks)
	}

	// teacher reviews the submission
	resp = p.do(t, http.MethodGet, "/teacher/exams/"+ex.ID+"/submissions", teacher, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submissions: status %d", resp.StatusCode)
	}
	var subs []exam.Attempt
	decode(t, resp, &subs)
	if len(subs) != 1 || subs[0].ID != submitted.AttemptID {
		t.Fatalf("submissions = %+v", subs)
	}
}

func TestForeignTeacherGetsSoftRedirect(t *testing.T) {
	p := newTestPortal(t)
	owner := p.register(t, rbac.RoleTeacher, "owner")
	other := p.register(t, rbac.RoleTeacher, "other")

	resp := p.do(t, http.MethodPost, "/exams", owner, map[string]any{
		"title": "Mine", "date": "2026-09-15", "duration_minutes": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create exam: status %d", resp.StatusCode)
	}
	var ex exam.Exam
	decode(t, resp, &ex)

	resp = p.do(t, http.MethodDelete, "/exams/"+ex.ID, other, nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != api.PathExamList {
		t.Fatalf("foreign delete: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	// the exam survives
	if resp := p.do(t, http.MethodGet, "/exams/"+ex.ID+"/questions", owner, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("exam gone after foreign delete: status %d", resp.StatusCode)
	}
}

func TestSubmitRejectsMalformedAnswers(t *testing.T) {
	p := newTestPortal(t)
	teacher := p.register(t, rbac.RoleTeacher, "ted")
	student := p.register(t, rbac.RoleStudent, "alice")

	resp := p.do(t, http.MethodPost, "/exams", teacher, map[string]any{
		"title": "E", "date": "2026-09-15", "duration_minutes": 10,
	})
	var ex exam.Exam
	decode(t, resp, &ex)

	resp = p.do(t, http.MethodPost, "/student/exams/"+ex.ID+"/submit", student, map[string]any{
		"answers": map[string]string{"q": "not-a-number"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed answers: status %d, want 400", resp.StatusCode)
	}

	// GET on the submit path is a navigation back to the exam list
	resp = p.do(t, http.MethodGet, "/student/exams/"+ex.ID+"/submit", student, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("GET submit: status %d, want 303", resp.StatusCode)
	}
}

func TestContactFeedbackReachesAdmin(t *testing.T) {
	p := newTestPortal(t)
	admin := p.register(t, rbac.RoleAdmin, "root")

	resp := p.do(t, http.MethodPost, "/contact", "", map[string]string{
		"name": "Visitor", "email": "v@example.com", "subject": "hi", "message": "love the portal",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("contact: status %d", resp.StatusCode)
	}

	resp = p.do(t, http.MethodGet, "/admin/feedback", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list feedback: status %d", resp.StatusCode)
	}
	var list []feedback.Feedback
	decode(t, resp, &list)
	if len(list) != 1 || list[0].Message != "love the portal" {
		t.Fatalf("feedback = %+v", list)
	}
}
