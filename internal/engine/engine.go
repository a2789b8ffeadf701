package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/patelaryan0914/posteditme/internal/config"
	"github.com/patelaryan0914/posteditme/internal/domain"
	"github.com/patelaryan0914/posteditme/internal/engine/auth"
	"github.com/patelaryan0914/posteditme/internal/events"
	"github.com/patelaryan0914/posteditme/internal/repo"
)

// ErrConflict marks duplicate unique fields (user email, agent name).
var ErrConflict = errors.New("already exists")

// ErrInvalidCredentials is returned on failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSelfDelete blocks an admin from deleting their own account.
var ErrSelfDelete = errors.New("cannot delete your own account")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// SignupOptions are parameters for creating a user account.
type SignupOptions struct {
	Email     string
	Password  string
	Languages []string
}

// Signup creates an unapproved worker account. The configured default-admin
// email is created as an approved system_admin instead.
func (e Engine) Signup(ctx context.Context, opts SignupOptions) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if len(opts.Password) < 6 {
		return domain.User{}, errors.New("password must be at least 6 characters")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, fmt.Errorf("user with email %s: %w", email, ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Approved:     false,
		Status:       domain.UserActive,
		Languages:    opts.Languages,
		CreatedAt:    e.nowRFC3339(),
	}
	if e.Config != nil && e.Config.Auth.DefaultAdminEmail != "" &&
		strings.EqualFold(email, e.Config.Auth.DefaultAdminEmail) {
		u.Role = domain.RoleSystemAdmin
		u.Approved = true
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "user.signup", "user", u.ID, u.ID, events.EventPayload{"role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login verifies credentials and returns the stored user.
func (e Engine) Login(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CallerFromUser loads the stored role for a user id.
func (e Engine) CallerFromUser(ctx context.Context, userID string) (auth.Caller, error) {
	if userID == "" {
		return auth.Caller{}, auth.UnauthorizedError{}
	}
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return auth.Caller{}, auth.UnauthorizedError{}
		}
		return auth.Caller{}, err
	}
	return auth.Caller{UserID: u.ID, Role: u.Role}, nil
}

func (e Engine) ListUsers(ctx context.Context, caller auth.Caller) ([]domain.User, error) {
	if err := auth.RequireAdmin(caller, "user.list"); err != nil {
		return nil, err
	}
	return e.Repo.ListUsers(ctx)
}

func (e Engine) ApproveUser(ctx context.Context, caller auth.Caller, userID string, approved bool) (domain.User, error) {
	if err := auth.RequireAdmin(caller, "user.approve"); err != nil {
		return domain.User{}, err
	}
	if err := e.Repo.SetUserApproval(ctx, userID, approved); err != nil {
		return domain.User{}, err
	}
	e.audit(ctx, "user.approve", "user", userID, caller.UserID, events.EventPayload{"approved": approved})
	return e.Repo.GetUser(ctx, userID)
}

func (e Engine) SuspendUser(ctx context.Context, caller auth.Caller, userID, status string) (domain.User, error) {
	if err := auth.RequireAdmin(caller, "user.suspend"); err != nil {
		return domain.User{}, err
	}
	if status != domain.UserActive && status != domain.UserSuspended {
		return domain.User{}, fmt.Errorf("invalid user status %q", status)
	}
	if err := e.Repo.SetUserStatus(ctx, userID, status); err != nil {
		return domain.User{}, err
	}
	e.audit(ctx, "user.status", "user", userID, caller.UserID, events.EventPayload{"status": status})
	return e.Repo.GetUser(ctx, userID)
}

func (e Engine) UpdateUserRole(ctx context.Context, caller auth.Caller, userID, role string) (domain.User, error) {
	if err := auth.RequireSystemAdmin(caller, "user.role"); err != nil {
		return domain.User{}, err
	}
	if !domain.ValidRole(role) {
		return domain.User{}, fmt.Errorf("invalid role %q", role)
	}
	if err := e.Repo.SetUserRole(ctx, nil, userID, role); err != nil {
		return domain.User{}, err
	}
	e.audit(ctx, "user.role", "user", userID, caller.UserID, events.EventPayload{"role": role})
	return e.Repo.GetUser(ctx, userID)
}

// DeleteUser removes an account. Deleting yourself is rejected.
func (e Engine) DeleteUser(ctx context.Context, caller auth.Caller, userID string) error {
	if err := auth.RequireAdmin(caller, "user.delete"); err != nil {
		return err
	}
	if caller.UserID == userID {
		return ErrSelfDelete
	}
	if err := e.Repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	e.audit(ctx, "user.delete", "user", userID, caller.UserID, nil)
	return nil
}

// audit appends a best-effort event in its own transaction for mutations
// that are single statements.
func (e Engine) audit(ctx context.Context, evtType, entityKind, entityID, actorID string, payload events.EventPayload) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	if err := e.Events.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload); err != nil {
		tx.Rollback()
		return
	}
	_ = tx.Commit()
}
