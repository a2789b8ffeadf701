package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
	"github.com/patelaryan0914/posteditme/internal/events"
	"github.com/patelaryan0914/posteditme/internal/repo"
)

// AgentCreateOptions are parameters for creating a vendor organization.
type AgentCreateOptions struct {
	Name        string
	Description string
	Status      string
	AdminIDs    []string
	UserIDs     []string
}

func (e Engine) CreateAgent(ctx context.Context, caller auth.Caller, opts AgentCreateOptions) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.create"); err != nil {
		return domain.Agent{}, err
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Agent{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetAgentByName(ctx, name); err == nil {
		return domain.Agent{}, fmt.Errorf("agent %s: %w", name, ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Agent{}, err
	}
	status := opts.Status
	if status == "" {
		status = domain.AgentActive
	}
	now := e.nowRFC3339()
	a := domain.Agent{
		ID:          uuid.NewString(),
		Name:        name,
		Description: opts.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Agent{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAgent(ctx, tx, a); err != nil {
		return domain.Agent{}, fmt.Errorf("insert agent: %w", err)
	}
	for _, userID := range opts.AdminIDs {
		if err := e.promoteAndAddAdmin(ctx, tx, a.ID, userID); err != nil {
			return domain.Agent{}, err
		}
	}
	for _, userID := range opts.UserIDs {
		if err := e.Repo.UpsertAgentMember(ctx, tx, a.ID, userID, false); err != nil {
			return domain.Agent{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "agent.create", "agent", a.ID, caller.UserID, events.EventPayload{"name": a.Name}); err != nil {
		return domain.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Agent{}, err
	}
	return e.Repo.GetAgent(ctx, a.ID)
}

// AgentUpdateOptions carry optional fields; nil means unchanged.
type AgentUpdateOptions struct {
	Name        *string
	Description *string
	Status      *string
}

func (e Engine) UpdateAgent(ctx context.Context, caller auth.Caller, agentID string, opts AgentUpdateOptions) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.update"); err != nil {
		return domain.Agent{}, err
	}
	if opts.Status != nil {
		switch *opts.Status {
		case domain.AgentActive, domain.AgentInactive, domain.AgentSuspended:
		default:
			return domain.Agent{}, fmt.Errorf("invalid agent status %q", *opts.Status)
		}
	}
	if opts.Name != nil {
		existing, err := e.Repo.GetAgentByName(ctx, *opts.Name)
		if err == nil && existing.ID != agentID {
			return domain.Agent{}, fmt.Errorf("agent %s: %w", *opts.Name, ErrConflict)
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Agent{}, err
		}
	}
	if err := e.Repo.UpdateAgent(ctx, agentID, opts.Name, opts.Description, opts.Status, e.nowRFC3339()); err != nil {
		return domain.Agent{}, err
	}
	e.audit(ctx, "agent.update", "agent", agentID, caller.UserID, nil)
	return e.Repo.GetAgent(ctx, agentID)
}

func (e Engine) DeleteAgent(ctx context.Context, caller auth.Caller, agentID string) error {
	if err := auth.RequireSystemAdmin(caller, "agent.delete"); err != nil {
		return err
	}
	if err := e.Repo.DeleteAgent(ctx, agentID); err != nil {
		return err
	}
	e.audit(ctx, "agent.delete", "agent", agentID, caller.UserID, nil)
	return nil
}

func (e Engine) GetAgent(ctx context.Context, caller auth.Caller, agentID string) (domain.Agent, error) {
	if err := auth.RequireAdmin(caller, "agent.read"); err != nil {
		return domain.Agent{}, err
	}
	return e.Repo.GetAgent(ctx, agentID)
}

func (e Engine) ListAgents(ctx context.Context, caller auth.Caller) ([]domain.Agent, error) {
	if err := auth.RequireAdmin(caller, "agent.list"); err != nil {
		return nil, err
	}
	return e.Repo.ListAgents(ctx)
}

// MyAgents returns the agents the caller administers.
func (e Engine) MyAgents(ctx context.Context, caller auth.Caller) ([]domain.Agent, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListAgentsAdministeredBy(ctx, caller.UserID)
}

// AgentStats summarize an agent for its admins.
type AgentStats struct {
	ProjectCount int
	MemberCount  int
}

func (e Engine) GetAgentStats(ctx context.Context, caller auth.Caller, agentID string) (AgentStats, error) {
	if err := auth.RequireAdmin(caller, "agent.stats"); err != nil {
		return AgentStats{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return AgentStats{}, err
	}
	projects, err := e.Repo.CountProjectsByAgent(ctx, agentID)
	if err != nil {
		return AgentStats{}, err
	}
	members, err := e.Repo.CountAgentMembers(ctx, agentID)
	if err != nil {
		return AgentStats{}, err
	}
	return AgentStats{ProjectCount: projects, MemberCount: members}, nil
}

// AddAgentAdmin promotes the user to agent_admin and adds an admin
// membership. The promotion is an explicit separate step so the role side
// effect is visible, and both land in one transaction.
func (e Engine) AddAgentAdmin(ctx context.Context, caller auth.Caller, agentID, userID string) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.addAdmin"); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.Agent{}, err
	}
	_, isAdmin, err := e.Repo.IsAgentMember(ctx, agentID, userID)
	if err != nil {
		return domain.Agent{}, err
	}
	if isAdmin {
		return e.Repo.GetAgent(ctx, agentID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Agent{}, err
	}
	defer tx.Rollback()
	if err := e.promoteAndAddAdmin(ctx, tx, agentID, userID); err != nil {
		return domain.Agent{}, err
	}
	if err := e.Events.Append(ctx, tx, "agent.addAdmin", "agent", agentID, caller.UserID, events.EventPayload{"user_id": userID}); err != nil {
		return domain.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Agent{}, err
	}
	return e.Repo.GetAgent(ctx, agentID)
}

func (e Engine) promoteAndAddAdmin(ctx context.Context, tx *sql.Tx, agentID, userID string) error {
	// Step 1: role promotion.
	if err := e.Repo.SetUserRole(ctx, tx, userID, domain.RoleAgentAdmin); err != nil {
		return fmt.Errorf("promote user %s: %w", userID, err)
	}
	// Step 2: membership.
	if err := e.Repo.UpsertAgentMember(ctx, tx, agentID, userID, true); err != nil {
		return fmt.Errorf("add admin membership: %w", err)
	}
	return nil
}

func (e Engine) RemoveAgentAdmin(ctx context.Context, caller auth.Caller, agentID, userID string) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.removeAdmin"); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return domain.Agent{}, err
	}
	if err := e.Repo.DeleteAgentMember(ctx, nil, agentID, userID, true); err != nil {
		return domain.Agent{}, err
	}
	e.audit(ctx, "agent.removeAdmin", "agent", agentID, caller.UserID, events.EventPayload{"user_id": userID})
	return e.Repo.GetAgent(ctx, agentID)
}

// AddAgentUser adds a worker membership. Already-associated users
// (as worker or admin) are left untouched.
func (e Engine) AddAgentUser(ctx context.Context, caller auth.Caller, agentID, userID string) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.addUser"); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.Agent{}, err
	}
	member, _, err := e.Repo.IsAgentMember(ctx, agentID, userID)
	if err != nil {
		return domain.Agent{}, err
	}
	if !member {
		if err := e.Repo.UpsertAgentMember(ctx, nil, agentID, userID, false); err != nil {
			return domain.Agent{}, err
		}
		e.audit(ctx, "agent.addUser", "agent", agentID, caller.UserID, events.EventPayload{"user_id": userID})
	}
	return e.Repo.GetAgent(ctx, agentID)
}

// RemoveAgentUser drops the user's membership, admin or worker alike.
func (e Engine) RemoveAgentUser(ctx context.Context, caller auth.Caller, agentID, userID string) (domain.Agent, error) {
	if err := auth.RequireSystemAdmin(caller, "agent.removeUser"); err != nil {
		return domain.Agent{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, agentID); err != nil {
		return domain.Agent{}, err
	}
	if err := e.Repo.DeleteAgentMember(ctx, nil, agentID, userID, false); err != nil {
		return domain.Agent{}, err
	}
	e.audit(ctx, "agent.removeUser", "agent", agentID, caller.UserID, events.EventPayload{"user_id": userID})
	return e.Repo.GetAgent(ctx, agentID)
}
