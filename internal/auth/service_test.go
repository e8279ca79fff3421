package auth

import (
	"testing"

	"github.com/examforge/examportal/internal/rbac"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("unit-secret")
	p := rbac.Principal{ID: "u1", Username: "alice", Role: rbac.RoleStudent}

	tok, err := svc.IssueToken(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != "u1" || claims.Username != "alice" || claims.Role != "student" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, err := NewService("secret-a").IssueToken(rbac.Principal{ID: "u1", Role: rbac.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewService("secret-b").Parse(tok); err == nil {
		t.Fatal("token signed with another key was accepted")
	}
}
