package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

func (r Repo) InsertAgent(ctx context.Context, tx *sql.Tx, a domain.Agent) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO agents(id,name,description,status,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		a.ID, a.Name, nullable(a.Description), a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	var a domain.Agent
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,''),status,created_at,updated_at FROM agents WHERE id=?`, id).
		Scan(&a.ID, &a.Name, &desc, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Description = desc.String
	if err := r.loadMembers(ctx, &a); err != nil {
		return a, err
	}
	return a, nil
}

func (r Repo) GetAgentByName(ctx context.Context, name string) (domain.Agent, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM agents WHERE name=?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return domain.Agent{}, ErrNotFound
	}
	if err != nil {
		return domain.Agent{}, err
	}
	return r.GetAgent(ctx, id)
}

func (r Repo) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,''),status,created_at,updated_at FROM agents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var agents []domain.Agent
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range agents {
		if err := r.loadMembers(ctx, &agents[i]); err != nil {
			return nil, err
		}
	}
	return agents, nil
}

// ListAgentsAdministeredBy returns active agents where the user is an admin member.
func (r Repo) ListAgentsAdministeredBy(ctx context.Context, userID string) ([]domain.Agent, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT a.id FROM agents a
JOIN agent_members m ON m.agent_id=a.id
WHERE m.user_id=? AND m.is_admin=1
ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var agents []domain.Agent
	for _, id := range ids {
		a, err := r.GetAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func (r Repo) loadMembers(ctx context.Context, a *domain.Agent) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id,is_admin FROM agent_members WHERE agent_id=? ORDER BY added_at, user_id`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	a.AdminIDs = []string{}
	a.UserIDs = []string{}
	for rows.Next() {
		var userID string
		var isAdmin int
		if err := rows.Scan(&userID, &isAdmin); err != nil {
			return err
		}
		if isAdmin != 0 {
			a.AdminIDs = append(a.AdminIDs, userID)
		} else {
			a.UserIDs = append(a.UserIDs, userID)
		}
	}
	return rows.Err()
}

func (r Repo) UpdateAgent(ctx context.Context, id string, name, description, status *string, updatedAt string) error {
	fields := []string{"updated_at=?"}
	args := []any{updatedAt}
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE agents SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteAgent(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM agents WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAgentMember adds or updates a membership row.
func (r Repo) UpsertAgentMember(ctx context.Context, tx *sql.Tx, agentID, userID string, isAdmin bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO agent_members(agent_id,user_id,is_admin,added_at) VALUES (?,?,?,?)
ON CONFLICT(agent_id,user_id) DO UPDATE SET is_admin=excluded.is_admin`,
		agentID, userID, boolInt(isAdmin), now)
	return err
}

// IsAgentMember reports membership and whether it is an admin membership.
func (r Repo) IsAgentMember(ctx context.Context, agentID, userID string) (member, admin bool, err error) {
	var isAdmin int
	err = r.DB.QueryRowContext(ctx, `SELECT is_admin FROM agent_members WHERE agent_id=? AND user_id=?`, agentID, userID).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, isAdmin != 0, nil
}

func (r Repo) DeleteAgentMember(ctx context.Context, tx *sql.Tx, agentID, userID string, adminOnly bool) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	query := `DELETE FROM agent_members WHERE agent_id=? AND user_id=?`
	if adminOnly {
		query += ` AND is_admin=1`
	}
	_, err := exec(ctx, query, agentID, userID)
	return err
}

// CountAgentMembers returns the number of member rows (admins included).
func (r Repo) CountAgentMembers(ctx context.Context, agentID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_members WHERE agent_id=?`, agentID).Scan(&n)
	return n, err
}
