// Package auth holds the flat role gate applied before every mutation.
// There is deliberately no per-agent resource scoping; see DESIGN.md.
package auth

import (
	"fmt"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

// ForbiddenError indicates the caller's role does not allow the action.
type ForbiddenError struct {
	Action string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role forbids %s", e.Action)
}

// UnauthorizedError indicates a missing or invalid session.
type UnauthorizedError struct{}

func (UnauthorizedError) Error() string { return "authentication required" }

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID string
	Role   string
}

// RequireUser rejects anonymous callers.
func RequireUser(c Caller) error {
	if c.UserID == "" {
		return UnauthorizedError{}
	}
	return nil
}

// RequireAdmin allows system_admin and agent_admin.
func RequireAdmin(c Caller, action string) error {
	if err := RequireUser(c); err != nil {
		return err
	}
	if !domain.IsAdmin(c.Role) {
		return ForbiddenError{Action: action}
	}
	return nil
}

// RequireSystemAdmin allows system_admin only.
func RequireSystemAdmin(c Caller, action string) error {
	if err := RequireUser(c); err != nil {
		return err
	}
	if c.Role != domain.RoleSystemAdmin {
		return ForbiddenError{Action: action}
	}
	return nil
}
