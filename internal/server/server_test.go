package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/patelaryan0914/posteditme/internal/config"
	"github.com/patelaryan0914/posteditme/internal/db"
	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine"
	"github.com/patelaryan0914/posteditme/internal/migrate"
)

const testAdminEmail = "root@example.com"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default(workspace)
	cfg.Auth.DefaultAdminEmail = testAdminEmail
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	authCfg := AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: authCfg})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func signupSession(t *testing.T, srv *testServer, email string) TokenResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", map[string]any{
		"email":    email,
		"password": "secret1",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s status %d: %s", email, res.StatusCode, string(data))
	}
	var session TokenResponse
	if err := json.Unmarshal(data, &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	return session
}

func TestClassificationWorkflow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	admin := signupSession(t, srv, testAdminEmail)
	if admin.User.Role != domain.RoleSystemAdmin {
		t.Fatalf("expected system_admin, got %s", admin.User.Role)
	}
	worker := signupSession(t, srv, "worker@example.com")

	// Workers cannot create agents.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/agents", map[string]any{
		"name": "LinguaWorks",
	}, bearer(worker.Token))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("worker create agent status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/agents", map[string]any{
		"name": "LinguaWorks",
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create agent status %d: %s", res.StatusCode, string(data))
	}
	var agent domain.Agent
	if err := json.Unmarshal(data, &agent); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}

	// A classification project with a target language is rejected.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"agent_id":        agent.ID,
		"name":            "Sentiment batch",
		"type":            "text_classification",
		"start_date":      "2024-01-01T00:00:00Z",
		"due_date":        "2024-02-01T00:00:00Z",
		"source_language": "en",
		"target_language": "de",
		"labels":          []string{"positive", "negative"},
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid project status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"agent_id":        agent.ID,
		"name":            "Sentiment batch",
		"type":            "text_classification",
		"start_date":      "2024-01-01T00:00:00Z",
		"due_date":        "2024-02-01T00:00:00Z",
		"source_language": "en",
		"labels":          []string{"positive", "negative"},
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(data))
	}
	var project domain.Project
	if err := json.Unmarshal(data, &project); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"project_id":   project.ID,
		"name":         "Classify",
		"file_content": []string{"alpha", "", "beta", "gamma"},
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create tasks status %d: %s", res.StatusCode, string(data))
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}

	ids := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/bulk-assign", map[string]any{
		"task_ids": ids,
		"user_id":  worker.User.ID,
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bulk assign status %d: %s", res.StatusCode, string(data))
	}
	var bulk BulkResponse
	if err := json.Unmarshal(data, &bulk); err != nil {
		t.Fatalf("unmarshal bulk: %v", err)
	}
	if bulk.UpdatedCount != 3 {
		t.Fatalf("expected 3 updated, got %d", bulk.UpdatedCount)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/mine", nil, bearer(worker.Token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("my tasks status %d: %s", res.StatusCode, string(data))
	}
	var mine []domain.Task
	if err := json.Unmarshal(data, &mine); err != nil {
		t.Fatalf("unmarshal mine: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 assigned tasks, got %d", len(mine))
	}

	// Worker submits classification work; stored text survives.
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/tasks/"+tasks[0].ID+"/classification", map[string]any{
		"selected_labels": []string{"positive"},
		"status":          "completed",
	}, bearer(worker.Token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit classification status %d: %s", res.StatusCode, string(data))
	}
	var done domain.Task
	if err := json.Unmarshal(data, &done); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if done.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.ClassificationData == nil || done.ClassificationData.Text != "alpha" {
		t.Fatalf("stored text must survive submission: %+v", done.ClassificationData)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if env.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", env.Error.Code)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should be public, got %d", res.StatusCode)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, bearer("not-a-token"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token should be rejected, got %d", res.StatusCode)
	}
}

func TestStaleRoleClaimIsIgnored(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	admin := signupSession(t, srv, testAdminEmail)
	worker := signupSession(t, srv, "worker@example.com")

	// Promote the worker after their token was issued.
	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v1/users/"+worker.User.ID+"/role", map[string]any{
		"role": domain.RoleSystemAdmin,
	}, bearer(admin.Token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("promote status %d: %s", res.StatusCode, string(data))
	}

	// The old token still works, and the stored role wins.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/agents", map[string]any{
		"name": "LinguaWorks",
	}, bearer(worker.Token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("promoted worker create agent status %d: %s", res.StatusCode, string(data))
	}
}
