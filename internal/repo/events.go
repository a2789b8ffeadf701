package repo

import (
	"context"
	"database/sql"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

// LatestEvents returns the newest audit events, optionally filtered by type,
// entity kind, or entity id.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, ts, type, entity_kind, entity_id, actor_id, payload_json FROM events WHERE 1=1`
	args := []any{}
	if evtType != "" {
		query += ` AND type = ?`
		args = append(args, evtType)
	}
	if entityKind != "" {
		query += ` AND entity_kind = ?`
		args = append(args, entityKind)
	}
	if entityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var entID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if entID.Valid {
			e.EntityID = entID.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
