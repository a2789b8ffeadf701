package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patelaryan0914/posteditme/internal/config"
	"github.com/patelaryan0914/posteditme/internal/db"
	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
	"github.com/patelaryan0914/posteditme/internal/migrate"
)

const adminEmail = "root@example.com"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default(dir)
	cfg.Auth.DefaultAdminEmail = adminEmail
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func signup(t *testing.T, env testEnv, email string) domain.User {
	t.Helper()
	u, err := env.Engine.Signup(env.Ctx, engine.SignupOptions{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return u
}

func callerFor(u domain.User) auth.Caller {
	return auth.Caller{UserID: u.ID, Role: u.Role}
}

func sysAdmin(t *testing.T, env testEnv) auth.Caller {
	t.Helper()
	return callerFor(signup(t, env, adminEmail))
}

func TestSignupDefaultAdminPromotion(t *testing.T) {
	env := newTestEnv(t)
	admin := signup(t, env, adminEmail)
	if admin.Role != domain.RoleSystemAdmin {
		t.Fatalf("expected system_admin, got %s", admin.Role)
	}
	if !admin.Approved {
		t.Fatalf("default admin should be approved")
	}

	worker := signup(t, env, "worker@example.com")
	if worker.Role != domain.RoleUser || worker.Approved {
		t.Fatalf("worker should start as unapproved user, got %s approved=%v", worker.Role, worker.Approved)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "dup@example.com")
	_, err := env.Engine.Signup(env.Ctx, engine.SignupOptions{Email: "DUP@example.com", Password: "secret1"})
	if !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginCredentials(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "who@example.com")

	if _, err := env.Engine.Login(env.Ctx, "who@example.com", "secret1"); err != nil {
		t.Fatalf("valid login: %v", err)
	}
	if _, err := env.Engine.Login(env.Ctx, "who@example.com", "wrong"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := env.Engine.Login(env.Ctx, "nobody@example.com", "secret1"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestApproveUserRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")

	var fe auth.ForbiddenError
	if _, err := env.Engine.ApproveUser(env.Ctx, callerFor(worker), worker.ID, true); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	u, err := env.Engine.ApproveUser(env.Ctx, admin, worker.ID, true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !u.Approved {
		t.Fatalf("user should be approved")
	}
}

func TestSuspendUserRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")

	if _, err := env.Engine.SuspendUser(env.Ctx, admin, worker.ID, "paused"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	u, err := env.Engine.SuspendUser(env.Ctx, admin, worker.ID, domain.UserSuspended)
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if u.Status != domain.UserSuspended {
		t.Fatalf("expected suspended, got %s", u.Status)
	}
}

func TestUpdateUserRoleIsSystemAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")

	promoted, err := env.Engine.UpdateUserRole(env.Ctx, admin, worker.ID, domain.RoleAgentAdmin)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Role != domain.RoleAgentAdmin {
		t.Fatalf("expected agent_admin, got %s", promoted.Role)
	}

	// agent_admin may not hand out roles
	var fe auth.ForbiddenError
	if _, err := env.Engine.UpdateUserRole(env.Ctx, callerFor(promoted), worker.ID, domain.RoleSystemAdmin); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteUserSelfGuard(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")

	if err := env.Engine.DeleteUser(env.Ctx, admin, admin.UserID); !errors.Is(err, engine.ErrSelfDelete) {
		t.Fatalf("expected self-delete guard, got %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, worker.ID); err != nil {
		t.Fatalf("delete worker: %v", err)
	}
	users, err := env.Engine.ListUsers(env.Ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user left, got %d", len(users))
	}
}
