package users

import (
	"context"

	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
)

// Gate computes a caller's permission level from the record store.
type Gate struct {
	users store.UserStore
}

// NewGate creates a gate reading from users.
func NewGate(users store.UserStore) *Gate {
	return &Gate{users: users}
}

// PermissionLevelOf returns the stored permission level for a login identifier.
// Anonymous callers and unknown emails get 0.
func (g *Gate) PermissionLevelOf(ctx context.Context, loginID string) (int, error) {
	if loginID == "" {
		return 0, nil
	}

	email := models.NormalizeEmail(loginID)

	all, err := g.users.List(ctx)
	if err != nil {
		return 0, &StoreError{Op: "list", Err: err}
	}

	for _, u := range all {
		if models.NormalizeEmail(u.Email) == email {
			return u.PermissionLevel, nil
		}
	}

	return 0, nil
}

// IsPrivileged reports whether level grants super-admin access.
func IsPrivileged(level int) bool {
	return models.IsPrivileged(level)
}
