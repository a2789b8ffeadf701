package engine_test

import (
	"errors"
	"testing"

	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
)

func createProject(t *testing.T, env testEnv, admin auth.Caller, agentID, projectType string) domain.Project {
	t.Helper()
	p := domain.Project{
		AgentID:        agentID,
		Name:           "Batch 1",
		Type:           projectType,
		StartDate:      "2024-01-01T00:00:00Z",
		DueDate:        "2024-02-01T00:00:00Z",
		SourceLanguage: "en",
	}
	switch projectType {
	case domain.TypeTextClassification, domain.TypeSequenceTagging:
		p.Labels = []string{"positive", "negative"}
	case domain.TypeErrorMarking:
		p.ErrorCategories = []string{"mistranslation"}
	case domain.TypeTranslationRating:
		p.TargetLanguage = "de"
		p.RatingFramework = domain.FrameworkFluency
	default:
		p.TargetLanguage = "de"
	}
	created, err := env.Engine.CreateProject(env.Ctx, admin, p)
	if err != nil {
		t.Fatalf("create %s project: %v", projectType, err)
	}
	return created
}

func TestCreateTasksOnePerLine(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)

	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"alpha", "", "beta", "   ", "gamma"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks for 3 non-empty lines, got %d", len(tasks))
	}
	want := []string{"alpha", "beta", "gamma"}
	for i, tk := range tasks {
		if tk.ClassificationData == nil || tk.ClassificationData.Text != want[i] {
			t.Fatalf("task %d: expected text %q, got %+v", i, want[i], tk.ClassificationData)
		}
		if tk.Status != domain.TaskPending {
			t.Fatalf("task %d: expected pending, got %s", i, tk.Status)
		}
		if tk.Priority != domain.PriorityMedium {
			t.Fatalf("task %d: expected default priority medium, got %s", i, tk.Priority)
		}
	}
}

func TestCreateTasksSeedsTranslationSegments(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeHumanTranslation)

	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Translate",
		FileContent: []string{"hello world"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}
	if len(tasks) != 1 || len(tasks[0].TranslationData) != 1 {
		t.Fatalf("expected one task with one segment, got %+v", tasks)
	}
	if tasks[0].TranslationData[0].SourceText != "hello world" {
		t.Fatalf("segment source mismatch: %+v", tasks[0].TranslationData[0])
	}
}

func TestCreateTasksRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)

	var fe auth.ForbiddenError
	_, err = env.Engine.CreateTasks(env.Ctx, callerFor(worker), engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"alpha"},
	})
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitClassificationPreservesText(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)
	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"the quick brown fox"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	conf := 0.9
	updated, err := env.Engine.SubmitClassification(env.Ctx, callerFor(worker), tasks[0].ID, domain.ClassificationData{
		Text:           "attempt to overwrite",
		SelectedLabels: []string{"positive"},
		Confidence:     &conf,
	}, domain.TaskCompleted)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if updated.ClassificationData.Text != "the quick brown fox" {
		t.Fatalf("stored text must survive submissions, got %q", updated.ClassificationData.Text)
	}
	if len(updated.ClassificationData.SelectedLabels) != 1 || updated.ClassificationData.SelectedLabels[0] != "positive" {
		t.Fatalf("labels not saved: %+v", updated.ClassificationData)
	}
	if updated.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestSubmitTranslationSegment(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeHumanTranslation)
	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Translate",
		FileContent: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	seg := domain.TranslationSegment{SourceText: "hello", TranslatedText: "hallo"}
	updated, err := env.Engine.SubmitTranslationSegment(env.Ctx, callerFor(worker), tasks[0].ID, 0, seg, "")
	if err != nil {
		t.Fatalf("submit segment: %v", err)
	}
	if updated.TranslationData[0].TranslatedText != "hallo" {
		t.Fatalf("segment not saved: %+v", updated.TranslationData[0])
	}

	// Saving the same segment twice is idempotent.
	updated, err = env.Engine.SubmitTranslationSegment(env.Ctx, callerFor(worker), tasks[0].ID, 0, seg, "")
	if err != nil {
		t.Fatalf("resubmit segment: %v", err)
	}
	if len(updated.TranslationData) != 1 || updated.TranslationData[0].TranslatedText != "hallo" {
		t.Fatalf("resubmit changed state: %+v", updated.TranslationData)
	}

	if _, err := env.Engine.SubmitTranslationSegment(env.Ctx, callerFor(worker), tasks[0].ID, 5, seg, ""); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestBulkAssignAndUnassign(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)
	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}
	ids := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}

	count, err := env.Engine.BulkAssign(env.Ctx, admin, ids, worker.ID)
	if err != nil {
		t.Fatalf("bulk assign: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated, got %d", count)
	}

	mine, err := env.Engine.MyTasks(env.Ctx, callerFor(worker))
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 assigned tasks, got %d", len(mine))
	}

	// Unknown ids do not count.
	count, err = env.Engine.BulkAssign(env.Ctx, admin, []string{tasks[0].ID, "no-such-task"}, worker.ID)
	if err != nil {
		t.Fatalf("bulk assign with unknown id: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 updated, got %d", count)
	}

	count, err = env.Engine.BulkUnassign(env.Ctx, admin, ids)
	if err != nil {
		t.Fatalf("bulk unassign: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 cleared, got %d", count)
	}
	mine, err = env.Engine.MyTasks(env.Ctx, callerFor(worker))
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no assigned tasks, got %d", len(mine))
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "worker@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)
	tasks, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"a"},
	})
	if err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, admin, tasks[0].ID, "paused"); err == nil {
		t.Fatalf("expected invalid status error")
	}

	// Status is a plain overwrite; pending -> completed is allowed.
	updated, err := env.Engine.UpdateTaskStatus(env.Ctx, admin, tasks[0].ID, domain.TaskCompleted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	var fe auth.ForbiddenError
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, callerFor(worker), tasks[0].ID, domain.TaskPending); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for worker, got %v", err)
	}
}

func TestMyAdminTasks(t *testing.T) {
	env := newTestEnv(t)
	admin := sysAdmin(t, env)
	worker := signup(t, env, "lead@example.com")
	agent, err := env.Engine.CreateAgent(env.Ctx, admin, engine.AgentCreateOptions{Name: "LinguaWorks"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if _, err := env.Engine.AddAgentAdmin(env.Ctx, admin, agent.ID, worker.ID); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	project := createProject(t, env, admin, agent.ID, domain.TypeTextClassification)
	if _, err := env.Engine.CreateTasks(env.Ctx, admin, engine.TaskCreateOptions{
		ProjectID:   project.ID,
		Name:        "Classify",
		FileContent: []string{"a", "b"},
	}); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	got, err := env.Engine.MyAdminTasks(env.Ctx, callerFor(worker))
	if err != nil {
		t.Fatalf("my admin tasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks across administered agents, got %d", len(got))
	}

	outsider := signup(t, env, "outsider@example.com")
	got, err = env.Engine.MyAdminTasks(env.Ctx, callerFor(outsider))
	if err != nil {
		t.Fatalf("outsider admin tasks: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("outsider should see no tasks, got %d", len(got))
	}
}
