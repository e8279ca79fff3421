package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/examforge/examportal/internal/apperr"
	"github.com/examforge/examportal/internal/db"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/rbac"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func TestCreateAndAuthenticate(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Create(ctx, "alice", "alice@example.com", "s3cret", rbac.RoleStudent)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.Role != rbac.RoleStudent {
		t.Fatalf("created user malformed: %+v", u)
	}

	got, err := store.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user: %s", got.ID)
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, "alice", "", "s3cret", rbac.RoleStudent); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, badPass := store.Authenticate(ctx, "alice", "wrong")
	_, noUser := store.Authenticate(ctx, "nobody", "s3cret")
	if !errors.Is(badPass, apperr.ErrNotFound) || !errors.Is(noUser, apperr.ErrNotFound) {
		t.Fatalf("wrong-password err = %v, unknown-user err = %v, want ErrNotFound for both", badPass, noUser)
	}
}

func TestCreateValidation(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, "", "", "pw", rbac.RoleStudent); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty username err = %v, want ErrValidation", err)
	}
	if _, err := store.Create(ctx, "bob", "", "", rbac.RoleStudent); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty password err = %v, want ErrValidation", err)
	}
	if _, err := store.Create(ctx, "bob", "", "pw", rbac.Role("superuser")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bogus role err = %v, want ErrValidation", err)
	}
}

func TestListExcludesAdmins(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, "root", "", "pw", rbac.RoleAdmin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := store.Create(ctx, "alice", "", "pw", rbac.RoleStudent); err != nil {
		t.Fatalf("create student: %v", err)
	}
	if _, err := store.Create(ctx, "ted", "", "pw", rbac.RoleTeacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}

	users, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("list = %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.Role == rbac.RoleAdmin {
			t.Fatalf("admin %s leaked into the management list", u.Username)
		}
	}
}

func TestDeleteAdminForbidden(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	admin, err := store.Create(ctx, "root", "", "pw", rbac.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := store.Delete(ctx, admin.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("delete admin err = %v, want ErrForbidden", err)
	}
	if _, err := store.GetByID(ctx, admin.ID); err != nil {
		t.Fatalf("admin should survive the delete: %v", err)
	}
}

func TestUpdatePreservesRoleAndPassword(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Create(ctx, "alice", "old@example.com", "s3cret", rbac.RoleTeacher)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Update(ctx, u.ID, "alice2", "new@example.com", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "alice2" || got.Email != "new@example.com" || got.Role != rbac.RoleTeacher {
		t.Fatalf("update result: %+v", got)
	}
	// empty password leaves the old one working
	if _, err := store.Authenticate(ctx, "alice2", "s3cret"); err != nil {
		t.Fatalf("old password stopped working: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Create(ctx, "alice", "", "old-pw", rbac.RoleStudent)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.ChangePassword(ctx, u.ID, "wrong", "new-pw"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("wrong old password err = %v, want ErrForbidden", err)
	}
	if err := store.ChangePassword(ctx, u.ID, "old-pw", "new-pw"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := store.Authenticate(ctx, "alice", "new-pw"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := store.Authenticate(ctx, "alice", "old-pw"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("old password still accepted")
	}
}

func TestSeedAdminIdempotent(t *testing.T) {
	store := identity.NewStore(newTestDB(t))
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("boot-pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.SeedAdmin(ctx, "root", "root@example.com", string(hash)); err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
	}
	u, err := store.Authenticate(ctx, "root", "boot-pw")
	if err != nil {
		t.Fatalf("authenticate seeded admin: %v", err)
	}
	if u.Role != rbac.RoleAdmin {
		t.Fatalf("seeded role = %s, want admin", u.Role)
	}
}
