package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
	"github.com/patelaryan0914/posteditme/internal/events"
	"github.com/patelaryan0914/posteditme/internal/repo"
)

// TaskCreateOptions are parameters for bulk task creation. One task is
// created per non-empty line of FileContent; all tasks share the remaining
// fields.
type TaskCreateOptions struct {
	ProjectID   string
	Name        string
	Description string
	Priority    string
	DueDate     string
	FileContent []string
}

// CreateTasks creates one task per non-empty line, in file order, seeding
// the payload that matches the owning project's type with the line text.
func (e Engine) CreateTasks(ctx context.Context, caller auth.Caller, opts TaskCreateOptions) ([]domain.Task, error) {
	if err := auth.RequireAdmin(caller, "task.create"); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		return nil, errors.New("name is required")
	}
	if opts.ProjectID == "" {
		return nil, errors.New("project_id is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return nil, fmt.Errorf("invalid priority %q", opts.Priority)
	}
	project, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return nil, err
	}
	now := e.nowRFC3339()
	var tasks []domain.Task
	for _, line := range opts.FileContent {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t := domain.Task{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			Name:        opts.Name,
			Description: opts.Description,
			Status:      domain.TaskPending,
			Priority:    opts.Priority,
			DueDate:     opts.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		seedPayload(&t, project.Type, line)
		tasks = append(tasks, t)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, t := range tasks {
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
	}
	if err := e.Events.Append(ctx, tx, "task.create", "project", project.ID, caller.UserID, events.EventPayload{"count": len(tasks)}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// seedPayload populates the single type-specific payload with the source line.
func seedPayload(t *domain.Task, projectType, line string) {
	switch projectType {
	case domain.TypeTextClassification:
		t.ClassificationData = &domain.ClassificationData{Text: line}
	case domain.TypeSequenceTagging:
		t.SequenceTaggingData = &domain.SequenceTaggingData{Text: line}
	case domain.TypePostEditing:
		t.PostEditingData = &domain.PostEditingData{SourceText: line}
	case domain.TypeErrorMarking:
		t.ErrorMarkingData = &domain.ErrorMarkingData{SourceText: line}
	case domain.TypeTranslationRating:
		t.TranslationRatingData = &domain.TranslationRatingData{SourceText: line}
	default: // human_translation, literary_translation
		t.TranslationData = []domain.TranslationSegment{{SourceText: line}}
	}
}

func (e Engine) GetTask(ctx context.Context, caller auth.Caller, taskID string) (domain.Task, error) {
	if err := auth.RequireUser(caller); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, taskID)
}

func (e Engine) ListProjectTasks(ctx context.Context, caller auth.Caller, f repo.TaskFilters) ([]domain.Task, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListTasks(ctx, f)
}

// UpdateTaskStatus overwrites status unconditionally; there is no enforced
// transition order, only the role gate.
func (e Engine) UpdateTaskStatus(ctx context.Context, caller auth.Caller, taskID, status string) (domain.Task, error) {
	if err := auth.RequireAdmin(caller, "task.updateStatus"); err != nil {
		return domain.Task{}, err
	}
	if !domain.ValidTaskStatus(status) {
		return domain.Task{}, fmt.Errorf("invalid task status %q", status)
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	t.Status = status
	t.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateTask(ctx, nil, t); err != nil {
		return domain.Task{}, err
	}
	e.audit(ctx, "task.status", "task", t.ID, caller.UserID, events.EventPayload{"status": status})
	return t, nil
}

// AssignTask sets the assignee on a single task.
func (e Engine) AssignTask(ctx context.Context, caller auth.Caller, taskID, userID string) (domain.Task, error) {
	if err := auth.RequireAdmin(caller, "task.assign"); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.Task{}, fmt.Errorf("user %s: %w", userID, err)
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	t.AssignedTo = &userID
	t.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateTask(ctx, nil, t); err != nil {
		return domain.Task{}, err
	}
	e.audit(ctx, "task.assign", "task", t.ID, caller.UserID, events.EventPayload{"user_id": userID})
	return t, nil
}

// BulkAssign sets assigned_to on every listed task in one transaction and
// returns the number of rows modified. IDs that match nothing simply do not
// count.
func (e Engine) BulkAssign(ctx context.Context, caller auth.Caller, taskIDs []string, userID string) (int64, error) {
	if err := auth.RequireAdmin(caller, "task.bulkAssign"); err != nil {
		return 0, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("user %s: %w", userID, err)
	}
	return e.bulkSetAssignee(ctx, caller, taskIDs, &userID, "task.bulkAssign")
}

// BulkUnassign clears assigned_to on every listed task.
func (e Engine) BulkUnassign(ctx context.Context, caller auth.Caller, taskIDs []string) (int64, error) {
	if err := auth.RequireAdmin(caller, "task.bulkUnassign"); err != nil {
		return 0, err
	}
	return e.bulkSetAssignee(ctx, caller, taskIDs, nil, "task.bulkUnassign")
}

func (e Engine) bulkSetAssignee(ctx context.Context, caller auth.Caller, taskIDs []string, userID *string, evtType string) (int64, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	count, err := e.Repo.BulkSetAssignee(ctx, tx, taskIDs, userID, e.nowRFC3339())
	if err != nil {
		return 0, err
	}
	payload := events.EventPayload{"count": count}
	if userID != nil {
		payload["user_id"] = *userID
	}
	if err := e.Events.Append(ctx, tx, evtType, "task", "", caller.UserID, payload); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (e Engine) DeleteTask(ctx context.Context, caller auth.Caller, taskID string) error {
	if err := auth.RequireAdmin(caller, "task.delete"); err != nil {
		return err
	}
	if err := e.Repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	e.audit(ctx, "task.delete", "task", taskID, caller.UserID, nil)
	return nil
}

// MyTasks returns the tasks assigned to the caller, newest first.
func (e Engine) MyTasks(ctx context.Context, caller auth.Caller) ([]domain.Task, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListTasks(ctx, repo.TaskFilters{AssignedTo: caller.UserID})
}

// MyAdminTasks returns tasks across all projects of agents the caller
// administers.
func (e Engine) MyAdminTasks(ctx context.Context, caller auth.Caller) ([]domain.Task, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	agents, err := e.Repo.ListAgentsAdministeredBy(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	agentIDs := make([]string, 0, len(agents))
	for _, a := range agents {
		agentIDs = append(agentIDs, a.ID)
	}
	projects, err := e.Repo.ListProjectsByAgents(ctx, agentIDs)
	if err != nil {
		return nil, err
	}
	projectIDs := make([]string, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}
	return e.Repo.ListTasksByProjects(ctx, projectIDs)
}

// SubmitClassification rewrites the classification payload keeping the
// original prompt text; callers can only supply labels, confidence, and
// notes.
func (e Engine) SubmitClassification(ctx context.Context, caller auth.Caller, taskID string, data domain.ClassificationData, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.ClassificationData == nil {
			return errors.New("task has no classification payload")
		}
		t.ClassificationData = &domain.ClassificationData{
			Text:           t.ClassificationData.Text,
			SelectedLabels: data.SelectedLabels,
			Confidence:     data.Confidence,
			Notes:          data.Notes,
		}
		return nil
	})
}

// SubmitTranslation replaces the whole segment list.
func (e Engine) SubmitTranslation(ctx context.Context, caller auth.Caller, taskID string, segments []domain.TranslationSegment, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.TranslationData == nil {
			return errors.New("task has no translation payload")
		}
		t.TranslationData = segments
		return nil
	})
}

// SubmitTranslationSegment updates one segment by index. Saving the same
// segment twice is idempotent.
func (e Engine) SubmitTranslationSegment(ctx context.Context, caller auth.Caller, taskID string, index int, seg domain.TranslationSegment, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.TranslationData == nil {
			return errors.New("task has no translation payload")
		}
		if index < 0 || index >= len(t.TranslationData) {
			return fmt.Errorf("segment index %d out of range", index)
		}
		t.TranslationData[index] = seg
		return nil
	})
}

// SubmitPostEditing keeps the stored source text and machine translation.
func (e Engine) SubmitPostEditing(ctx context.Context, caller auth.Caller, taskID string, data domain.PostEditingData, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.PostEditingData == nil {
			return errors.New("task has no post-editing payload")
		}
		t.PostEditingData = &domain.PostEditingData{
			SourceText:         t.PostEditingData.SourceText,
			MachineTranslation: t.PostEditingData.MachineTranslation,
			EditedTranslation:  data.EditedTranslation,
			EditDistance:       data.EditDistance,
			QualityScore:       data.QualityScore,
		}
		return nil
	})
}

// SubmitSequenceTagging keeps the stored text.
func (e Engine) SubmitSequenceTagging(ctx context.Context, caller auth.Caller, taskID string, data domain.SequenceTaggingData, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.SequenceTaggingData == nil {
			return errors.New("task has no sequence tagging payload")
		}
		t.SequenceTaggingData = &domain.SequenceTaggingData{
			Text:  t.SequenceTaggingData.Text,
			Tags:  data.Tags,
			Notes: data.Notes,
		}
		return nil
	})
}

// SubmitErrorMarking keeps the stored source text.
func (e Engine) SubmitErrorMarking(ctx context.Context, caller auth.Caller, taskID string, data domain.ErrorMarkingData, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.ErrorMarkingData == nil {
			return errors.New("task has no error marking payload")
		}
		t.ErrorMarkingData = &domain.ErrorMarkingData{
			SourceText:     t.ErrorMarkingData.SourceText,
			TranslatedText: data.TranslatedText,
			Errors:         data.Errors,
			QualityScore:   data.QualityScore,
			ReviewNotes:    data.ReviewNotes,
		}
		return nil
	})
}

// SubmitTranslationRating keeps the stored source text.
func (e Engine) SubmitTranslationRating(ctx context.Context, caller auth.Caller, taskID string, data domain.TranslationRatingData, status string) (domain.Task, error) {
	return e.submitPayload(ctx, caller, taskID, status, func(t *domain.Task) error {
		if t.TranslationRatingData == nil {
			return errors.New("task has no translation rating payload")
		}
		t.TranslationRatingData = &domain.TranslationRatingData{
			SourceText:     t.TranslationRatingData.SourceText,
			TranslatedText: data.TranslatedText,
			Rating:         data.Rating,
			Categories:     data.Categories,
			ReviewNotes:    data.ReviewNotes,
			Justification:  data.Justification,
		}
		return nil
	})
}

// submitPayload applies a worker payload mutation plus an optional status
// change. Workers do not need an admin role here; filling in payloads is
// their job.
func (e Engine) submitPayload(ctx context.Context, caller auth.Caller, taskID, status string, mutate func(*domain.Task) error) (domain.Task, error) {
	if err := auth.RequireUser(caller); err != nil {
		return domain.Task{}, err
	}
	if status != "" && !domain.ValidTaskStatus(status) {
		return domain.Task{}, fmt.Errorf("invalid task status %q", status)
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := mutate(&t); err != nil {
		return domain.Task{}, err
	}
	if status != "" {
		t.Status = status
	}
	t.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateTask(ctx, nil, t); err != nil {
		return domain.Task{}, err
	}
	e.audit(ctx, "task.submit", "task", t.ID, caller.UserID, events.EventPayload{"status": t.Status})
	return t, nil
}
