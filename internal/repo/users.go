package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

const userColumns = `id,email,password_hash,role,approved,status,languages_json,created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var approved int
	var languages sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &approved, &u.Status, &languages, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Approved = approved != 0
	u.Languages = decodeStringSlice(languages)
	return u, nil
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	langs, err := marshalStringSlice(u.Languages)
	if err != nil {
		return err
	}
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err = exec(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.Role, boolInt(u.Approved), u.Status, langs, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, strings.ToLower(email)))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r Repo) SetUserApproval(ctx context.Context, id string, approved bool) error {
	return r.updateUserField(ctx, nil, id, `approved=?`, boolInt(approved))
}

func (r Repo) SetUserStatus(ctx context.Context, id, status string) error {
	return r.updateUserField(ctx, nil, id, `status=?`, status)
}

func (r Repo) SetUserRole(ctx context.Context, tx *sql.Tx, id, role string) error {
	return r.updateUserField(ctx, tx, id, `role=?`, role)
}

func (r Repo) updateUserField(ctx context.Context, tx *sql.Tx, id, set string, val any) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `UPDATE users SET `+set+` WHERE id=?`, val, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
