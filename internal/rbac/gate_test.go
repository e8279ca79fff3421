package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthorizeAnonymousRedirectsToLogin(t *testing.T) {
	for _, c := range []Capability{AnyAuthenticated, AdminOnly, TeacherOnly, AdminOrTeacher} {
		d := Authorize(Principal{}, c)
		if d.Outcome != Redirect || d.Location != PathLogin {
			t.Errorf("capability %d: got %+v, want redirect to login", c, d)
		}
	}
}

func TestAuthorizeDecisionTable(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want Outcome
	}{
		{RoleAdmin, AdminOnly, Allow},
		{RoleTeacher, AdminOnly, Deny},
		{RoleStudent, AdminOnly, Deny},

		{RoleAdmin, TeacherOnly, Deny}, // no role hierarchy
		{RoleTeacher, TeacherOnly, Allow},
		{RoleStudent, TeacherOnly, Deny},

		{RoleAdmin, AdminOrTeacher, Allow},
		{RoleTeacher, AdminOrTeacher, Allow},
		{RoleStudent, AdminOrTeacher, Deny},

		{RoleAdmin, AnyAuthenticated, Allow},
		{RoleTeacher, AnyAuthenticated, Allow},
		{RoleStudent, AnyAuthenticated, Allow},
	}
	for _, tc := range cases {
		p := Principal{ID: "u1", Role: tc.role}
		if d := Authorize(p, tc.cap); d.Outcome != tc.want {
			t.Errorf("role=%s cap=%d: got %v, want %v", tc.role, tc.cap, d.Outcome, tc.want)
		}
	}
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, p Principal) *httptest.ResponseRecorder {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if p.Authenticated() {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireWrongRoleIsForbidden(t *testing.T) {
	rec := serve(t, Require(AdminOnly), Principal{ID: "t1", Role: RoleTeacher})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAnonymousRedirects(t *testing.T) {
	rec := serve(t, Require(AdminOnly), Principal{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != PathLogin {
		t.Fatalf("location = %q, want %q", loc, PathLogin)
	}
}

func TestRequireOrRedirectWrongRoleRedirects(t *testing.T) {
	rec := serve(t, RequireOrRedirect(TeacherOnly), Principal{ID: "s1", Role: RoleStudent})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != PathLogin {
		t.Fatalf("location = %q, want %q", loc, PathLogin)
	}
}

func TestRequireAllowsMatchingRole(t *testing.T) {
	rec := serve(t, Require(AdminOnly), Principal{ID: "a1", Role: RoleAdmin})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
