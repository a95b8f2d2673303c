package store

import (
	"context"
	"errors"
	"time"

	"github.com/wolfeidau/mudskipper/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrUserNotFound = errors.New("user not found")
	ErrThrottled    = errors.New("request throttled")
)

// UserStore persists user records in a single table keyed by id.
type UserStore interface {
	// Insert stores a new user. No uniqueness check is made on email.
	Insert(ctx context.Context, user *models.User) error

	// UpdatePermission sets the permission level and updated_at of an existing user.
	// The existence check and the write happen atomically; ErrUserNotFound is
	// returned and nothing is written when the id is unknown.
	UpdatePermission(ctx context.Context, id string, level int, now time.Time) error

	// List returns every user. Ordering is not guaranteed.
	List(ctx context.Context) ([]*models.User, error)

	// FindByEmail matches case-insensitively. If duplicates exist any one of them
	// may be returned. ErrUserNotFound is returned when nothing matches.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
