package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and local development - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users map[string]*models.User // id -> User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*models.User),
	}
}

// Insert stores a new user.
func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to avoid external modifications
	s.users[user.ID] = user.Clone()

	return nil
}

// UpdatePermission updates the permission level of an existing user.
func (s *UserStore) UpdatePermission(ctx context.Context, id string, level int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return store.ErrUserNotFound
	}

	user.PermissionLevel = level
	user.UpdatedAt = now

	return nil
}

// List returns all users.
func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u.Clone())
	}

	return result, nil
}

// FindByEmail returns a user whose lowercased email matches.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if models.NormalizeEmail(u.Email) == email {
			return u.Clone(), nil
		}
	}

	return nil, store.ErrUserNotFound
}
