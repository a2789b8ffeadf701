package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
	"github.com/patelaryan0914/posteditme/internal/events"
	"github.com/patelaryan0914/posteditme/internal/repo"
)

// CreateProject validates and persists a new project. Invalid type-specific
// configurations never reach the store.
func (e Engine) CreateProject(ctx context.Context, caller auth.Caller, p domain.Project) (domain.Project, error) {
	if err := auth.RequireAdmin(caller, "project.create"); err != nil {
		return domain.Project{}, err
	}
	p.ID = uuid.NewString()
	if p.Status == "" {
		p.Status = domain.ProjectDraft
	}
	if p.AssignedUsers == nil {
		p.AssignedUsers = []string{}
	}
	now := e.nowRFC3339()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := domain.ValidateProject(p); err != nil {
		return domain.Project{}, err
	}
	if _, err := e.Repo.GetAgent(ctx, p.AgentID); err != nil {
		return domain.Project{}, fmt.Errorf("agent %s: %w", p.AgentID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "project.create", "project", p.ID, caller.UserID, events.EventPayload{"type": p.Type, "agent_id": p.AgentID}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions carry optional fields; nil means unchanged. Start and
// due dates are immutable after creation.
type ProjectUpdateOptions struct {
	Name                *string
	Description         *string
	Status              *string
	TargetLanguage      *string
	Labels              []string
	ConfidenceThreshold *float64
	ErrorCategories     []string
	RatingFramework     *string
	CustomCategories    []domain.RatingCategory
	RatePerTask         *float64
	AssignedUsers       []string
}

// UpdateProject merges the options into the stored project and re-validates
// the result before writing, so updates obey the same construction rules.
func (e Engine) UpdateProject(ctx context.Context, caller auth.Caller, projectID string, opts ProjectUpdateOptions) (domain.Project, error) {
	if err := auth.RequireAdmin(caller, "project.update"); err != nil {
		return domain.Project{}, err
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if opts.Name != nil {
		p.Name = *opts.Name
	}
	if opts.Description != nil {
		p.Description = *opts.Description
	}
	if opts.Status != nil {
		if !domain.ValidProjectStatus(*opts.Status) {
			return domain.Project{}, fmt.Errorf("invalid project status %q", *opts.Status)
		}
		p.Status = *opts.Status
	}
	if opts.TargetLanguage != nil {
		p.TargetLanguage = *opts.TargetLanguage
	}
	if opts.Labels != nil {
		p.Labels = opts.Labels
	}
	if opts.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = opts.ConfidenceThreshold
	}
	if opts.ErrorCategories != nil {
		p.ErrorCategories = opts.ErrorCategories
	}
	if opts.RatingFramework != nil {
		p.RatingFramework = *opts.RatingFramework
	}
	if opts.CustomCategories != nil {
		p.CustomCategories = opts.CustomCategories
	}
	if opts.RatePerTask != nil {
		p.RatePerTask = opts.RatePerTask
	}
	if opts.AssignedUsers != nil {
		p.AssignedUsers = opts.AssignedUsers
	}
	p.UpdatedAt = e.nowRFC3339()
	if err := domain.ValidateProject(p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpdateProject(ctx, nil, p); err != nil {
		return domain.Project{}, err
	}
	e.audit(ctx, "project.update", "project", p.ID, caller.UserID, nil)
	return p, nil
}

// DeleteProject removes the project row only. Tasks are deliberately left
// in place; see DESIGN.md on the cascade question.
func (e Engine) DeleteProject(ctx context.Context, caller auth.Caller, projectID string) error {
	if err := auth.RequireAdmin(caller, "project.delete"); err != nil {
		return err
	}
	if err := e.Repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	e.audit(ctx, "project.delete", "project", projectID, caller.UserID, nil)
	return nil
}

func (e Engine) GetProject(ctx context.Context, caller auth.Caller, projectID string) (domain.Project, error) {
	if err := auth.RequireUser(caller); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, projectID)
}

func (e Engine) ListProjects(ctx context.Context, caller auth.Caller, f repo.ProjectFilters) ([]domain.Project, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListProjects(ctx, f)
}
