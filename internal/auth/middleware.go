package auth

import (
	"net/http"
	"strings"

	"github.com/examforge/examportal/internal/rbac"
)

// Principal attaches the bearer token's principal to the request context.
// Anonymous and bad-token requests pass through with an empty principal;
// the rbac middleware downstream decides what that means per mount.
func Principal(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := s.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			p := rbac.Principal{ID: claims.Sub, Username: claims.Username, Role: rbac.Role(claims.Role)}
			next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(r.Context(), p)))
		})
	}
}
