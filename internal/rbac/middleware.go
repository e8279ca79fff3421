package rbac

import (
	"net/http"
)

// Require enforces a capability on administrative mounts: a wrong role is an
// explicit 403, only anonymous callers are sent to login.
func Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			switch d := Authorize(p, c); d.Outcome {
			case Allow:
				next.ServeHTTP(w, r)
			case Redirect:
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}

// RequireOrRedirect enforces a capability on dashboard/workflow mounts: any
// failure, wrong role included, navigates to login instead of erroring.
func RequireOrRedirect(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if d := Authorize(p, c); d.Outcome != Allow {
				http.Redirect(w, r, PathLogin, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
