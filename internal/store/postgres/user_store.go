package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

const userColumns = `id, email, first_name, last_name, permission_level, status, invited_by, created_at, updated_at`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Insert inserts a new user row.
func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PermissionLevel,
		string(user.Status),
		user.InvitedBy,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("id", user.ID).
		Str("email", user.Email).
		Msg("Inserted user")

	return nil
}

// UpdatePermission updates a user's permission level in a single statement.
// Zero affected rows means the user does not exist.
func (s *UserStore) UpdatePermission(ctx context.Context, id string, level int, now time.Time) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET
			permission_level = $2,
			updated_at = $3
		WHERE id = $1
	`, id, level, now)
	if err != nil {
		return fmt.Errorf("failed to update user permission: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().
		Str("id", id).
		Int("permission_level", level).
		Msg("Updated user permission")

	return nil
}

// List returns all users.
func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err))
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", mapPostgresError(err))
	}

	return users, nil
}

// FindByEmail finds a user by lowercased email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = $1
		LIMIT 1
	`, models.NormalizeEmail(email))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u      models.User
		status string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PermissionLevel,
		&status,
		&u.InvitedBy,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", mapPostgresError(err))
	}

	u.Status = models.UserStatus(status)
	return &u, nil
}
