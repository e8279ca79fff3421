// Package rbac is the role gate for the portal. Every screen opts into the
// exact capability it needs; there is no role hierarchy, so an admin does not
// implicitly pass a teacher-only check.
package rbac

import "context"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// Principal is the actor behind a request. The zero value is anonymous.
type Principal struct {
	ID       string
	Username string
	Role     Role
}

func (p Principal) Authenticated() bool { return p.ID != "" }

type Capability int

const (
	AnyAuthenticated Capability = iota
	AdminOnly
	TeacherOnly
	AdminOrTeacher
)

// Outcome is deliberately three-state: a denied dashboard navigation is a
// redirect to a safe screen, not an error.
type Outcome int

const (
	Allow Outcome = iota
	Deny
	Redirect
)

const PathLogin = "/auth/login"

type Decision struct {
	Outcome  Outcome
	Location string // target for Redirect
}

func allow() Decision             { return Decision{Outcome: Allow} }
func deny() Decision              { return Decision{Outcome: Deny} }
func redirect(to string) Decision { return Decision{Outcome: Redirect, Location: to} }

// Authorize checks a principal against a capability. Unauthenticated callers
// always get a redirect to login. Authenticated callers with the wrong role
// get Deny; the middleware decides whether Deny renders as 403 or as a
// login redirect depending on the kind of mount.
func Authorize(p Principal, c Capability) Decision {
	if !p.Authenticated() {
		return redirect(PathLogin)
	}
	switch c {
	case AnyAuthenticated:
		return allow()
	case AdminOnly:
		if p.Role == RoleAdmin {
			return allow()
		}
	case TeacherOnly:
		if p.Role == RoleTeacher {
			return allow()
		}
	case AdminOrTeacher:
		if p.Role == RoleAdmin || p.Role == RoleTeacher {
			return allow()
		}
	}
	return deny()
}

// ---- principal in context ----

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	if v := ctx.Value(ctxKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}
