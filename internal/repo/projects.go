package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

const projectColumns = `id,agent_id,name,description,type,status,start_date,due_date,source_language,target_language,labels_json,confidence_threshold,error_categories_json,rating_framework,custom_categories_json,rate_per_task,assigned_users_json,created_at,updated_at`

// ProjectFilters narrow ListProjects; zero values mean no filtering.
type ProjectFilters struct {
	Status          string
	Type            string
	AgentID         string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func scanProject(row interface{ Scan(...any) error }) (domain.Project, error) {
	var p domain.Project
	var desc, target, labels, errCats, framework, custom, assigned sql.NullString
	var threshold, rate sql.NullFloat64
	err := row.Scan(&p.ID, &p.AgentID, &p.Name, &desc, &p.Type, &p.Status, &p.StartDate, &p.DueDate,
		&p.SourceLanguage, &target, &labels, &threshold, &errCats, &framework, &custom, &rate,
		&assigned, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Description = desc.String
	p.TargetLanguage = target.String
	p.Labels = decodeStringSlice(labels)
	if threshold.Valid {
		v := threshold.Float64
		p.ConfidenceThreshold = &v
	}
	p.ErrorCategories = decodeStringSlice(errCats)
	p.RatingFramework = framework.String
	if custom.Valid && custom.String != "" {
		_ = json.Unmarshal([]byte(custom.String), &p.CustomCategories)
	}
	if rate.Valid {
		v := rate.Float64
		p.RatePerTask = &v
	}
	p.AssignedUsers = decodeStringSlice(assigned)
	if p.AssignedUsers == nil {
		p.AssignedUsers = []string{}
	}
	return p, nil
}

func projectArgs(p domain.Project) ([]any, error) {
	labels, err := marshalStringSlice(p.Labels)
	if err != nil {
		return nil, err
	}
	errCats, err := marshalStringSlice(p.ErrorCategories)
	if err != nil {
		return nil, err
	}
	var custom any
	if len(p.CustomCategories) > 0 {
		custom, err = marshalJSON(p.CustomCategories)
		if err != nil {
			return nil, err
		}
	}
	assigned, err := marshalStringSlice(p.AssignedUsers)
	if err != nil {
		return nil, err
	}
	var threshold, rate any
	if p.ConfidenceThreshold != nil {
		threshold = *p.ConfidenceThreshold
	}
	if p.RatePerTask != nil {
		rate = *p.RatePerTask
	}
	return []any{
		p.ID, p.AgentID, p.Name, nullable(p.Description), p.Type, p.Status, p.StartDate, p.DueDate,
		p.SourceLanguage, nullable(p.TargetLanguage), labels, threshold, errCats,
		nullable(p.RatingFramework), custom, rate, assigned, p.CreatedAt, p.UpdatedAt,
	}, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjectsByAgents returns all projects owned by any of the given agents.
func (r Repo) ListProjectsByAgents(ctx context.Context, agentIDs []string) ([]domain.Project, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(agentIDs)), ",")
	args := make([]any, len(agentIDs))
	for i, id := range agentIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE agent_id IN (`+placeholders+`) ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject replaces the stored row with the already-validated project.
func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	// Shift id to the WHERE clause.
	args = append(args[1:], p.ID)
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `UPDATE projects SET agent_id=?,name=?,description=?,type=?,status=?,start_date=?,due_date=?,source_language=?,target_language=?,labels_json=?,confidence_threshold=?,error_categories_json=?,rating_framework=?,custom_categories_json=?,rate_per_task=?,assigned_users_json=?,created_at=?,updated_at=? WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProject(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProjectsByAgent returns the number of projects owned by an agent.
func (r Repo) CountProjectsByAgent(ctx context.Context, agentID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE agent_id=?`, agentID).Scan(&n)
	return n, err
}
