package engine_test

import (
	"errors"
	"testing"

	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine"
	"github.com/patelaryan0914/posteditme/internal/repo"
)

func TestCreateAgentDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	if _, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddAgentAdminPromotesRole(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	a, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	a, err = env.Engine.AddAgentAdmin(env.Ctx, admin, a.ID, worker.ID)
	if err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if len(a.AdminIDs) != 1 || a.AdminIDs[0] != worker.ID {
		t.Fatalf("expected admin membership, got %v", a.AdminIDs)
	}

	// The role side effect lands with the membership.
	u, err := env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Role != domain.RoleAgentAdmin {
		t.Fatalf("expected agent_admin after addAdmin, got %s", u.Role)
	}

	// Adding again is a no-op.
	again, err := env.Engine.AddAgentAdmin(env.Ctx, admin, a.ID, worker.ID)
	if err != nil {
		t.Fatalf("idempotent add: %v", err)
	}
	if len(again.AdminIDs) != 1 {
		t.Fatalf("expected single admin entry, got %v", again.AdminIDs)
	}
}

func TestAgentMembership(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	a, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	a, err = env.Engine.AddAgentUser(env.Ctx, admin, a.ID, worker.ID)
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if len(a.UserIDs) != 1 {
		t.Fatalf("expected one worker, got %v", a.UserIDs)
	}

	a, err = env.Engine.RemoveAgentUser(env.Ctx, admin, a.ID, worker.ID)
	if err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if len(a.UserIDs) != 0 {
		t.Fatalf("expected no workers, got %v", a.UserIDs)
	}
}

func TestMyAgents(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	a, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{
		Name:     "LinguaWorks",
		AdminIDs: []string{worker.ID},
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	mine, err := env.Engine.MyAgents(env.Ctx, callerFor(worker))
	if err != nil {
		t.Fatalf("my agents: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("expected the one administered agent, got %v", mine)
	}
}

func TestDeleteAgentLeavesNoMembers(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	a, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{
		Name:    "LinguaWorks",
		UserIDs: []string{worker.ID},
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := env.Engine.DeleteAgent(env.Ctx, admin, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetAgent(env.Ctx, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
