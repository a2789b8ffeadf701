package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

const taskColumns = `id,project_id,name,description,assigned_to,status,priority,due_date,translation_json,post_editing_json,classification_json,sequence_tagging_json,error_marking_json,translation_rating_json,created_at,updated_at`

// TaskFilters narrow ListTasks; zero values mean no filtering.
type TaskFilters struct {
	ProjectID       string
	Status          string
	AssignedTo      string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var desc, assignedTo, dueDate sql.NullString
	var translation, postEditing, classification, tagging, errMarking, rating sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &desc, &assignedTo, &t.Status, &t.Priority, &dueDate,
		&translation, &postEditing, &classification, &tagging, &errMarking, &rating,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Description = desc.String
	if assignedTo.Valid {
		v := assignedTo.String
		t.AssignedTo = &v
	}
	t.DueDate = dueDate.String
	if translation.Valid && translation.String != "" {
		_ = json.Unmarshal([]byte(translation.String), &t.TranslationData)
	}
	decodeInto(postEditing, &t.PostEditingData)
	decodeInto(classification, &t.ClassificationData)
	decodeInto(tagging, &t.SequenceTaggingData)
	decodeInto(errMarking, &t.ErrorMarkingData)
	decodeInto(rating, &t.TranslationRatingData)
	return t, nil
}

func decodeInto[T any](raw sql.NullString, dst **T) {
	if !raw.Valid || raw.String == "" {
		return
	}
	var v T
	if err := json.Unmarshal([]byte(raw.String), &v); err == nil {
		*dst = &v
	}
}

func encodePayload[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return marshalJSON(v)
}

func taskArgs(t domain.Task) ([]any, error) {
	var translation any
	if t.TranslationData != nil {
		v, err := marshalJSON(t.TranslationData)
		if err != nil {
			return nil, err
		}
		translation = v
	}
	postEditing, err := encodePayload(t.PostEditingData)
	if err != nil {
		return nil, err
	}
	classification, err := encodePayload(t.ClassificationData)
	if err != nil {
		return nil, err
	}
	tagging, err := encodePayload(t.SequenceTaggingData)
	if err != nil {
		return nil, err
	}
	errMarking, err := encodePayload(t.ErrorMarkingData)
	if err != nil {
		return nil, err
	}
	rating, err := encodePayload(t.TranslationRatingData)
	if err != nil {
		return nil, err
	}
	return []any{
		t.ID, t.ProjectID, t.Name, nullable(t.Description), nullableStr(t.AssignedTo),
		t.Status, t.Priority, nullable(t.DueDate),
		translation, postEditing, classification, tagging, errMarking, rating,
		t.CreatedAt, t.UpdatedAt,
	}, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasksByProjects returns tasks belonging to any of the given projects,
// newest first.
func (r Repo) ListTasksByProjects(ctx context.Context, projectIDs []string) ([]domain.Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projectIDs)), ",")
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id IN (`+placeholders+`) ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask replaces the stored row with the already-merged task.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	args = append(args[1:], t.ID)
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `UPDATE tasks SET project_id=?,name=?,description=?,assigned_to=?,status=?,priority=?,due_date=?,translation_json=?,post_editing_json=?,classification_json=?,sequence_tagging_json=?,error_marking_json=?,translation_rating_json=?,created_at=?,updated_at=? WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkSetAssignee sets or clears assigned_to for every matching task in one
// statement and returns the number of rows modified. Missing ids are simply
// not counted.
func (r Repo) BulkSetAssignee(ctx context.Context, tx *sql.Tx, taskIDs []string, userID *string, updatedAt string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(taskIDs)), ",")
	args := []any{nullableStr(userID), updatedAt}
	for _, id := range taskIDs {
		args = append(args, id)
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `UPDATE tasks SET assigned_to=?, updated_at=? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProjectTasks removes every task of a project. Not called by any
// endpoint: project deletion deliberately leaves tasks orphaned.
func (r Repo) DeleteProjectTasks(ctx context.Context, projectID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE project_id=?`, projectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountTasksByStatus aggregates a project's tasks per status.
func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks WHERE project_id=? GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
