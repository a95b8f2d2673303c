//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *UserStore {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// migrations are idempotent
	require.NoError(t, RunMigrations(ctx, pool))

	return NewUserStore(pool)
}

func TestIntegration_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	st := setupPostgresContainer(t, ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := "Ada"
	user := &models.User{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Email:           "a@x.com",
		FirstName:       &first,
		PermissionLevel: 2,
		Status:          models.UserStatusActive,
		InvitedBy:       "root",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	t.Run("insert and find", func(t *testing.T) {
		require.NoError(t, st.Insert(ctx, user))

		got, err := st.FindByEmail(ctx, "A@X.COM")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, "Ada", *got.FirstName)
		require.Nil(t, got.LastName)
		require.Equal(t, models.UserStatusActive, got.Status)
	})

	t.Run("update permission", func(t *testing.T) {
		later := now.Add(time.Minute)
		require.NoError(t, st.UpdatePermission(ctx, user.ID, 5, later))

		got, err := st.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, 5, got.PermissionLevel)
		require.True(t, later.Equal(got.UpdatedAt))
	})

	t.Run("update missing user", func(t *testing.T) {
		err := st.UpdatePermission(ctx, "missing", 3, time.Now())
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("out of range level rejected by schema", func(t *testing.T) {
		err := st.UpdatePermission(ctx, user.ID, 9, time.Now())
		require.Error(t, err)
		require.Contains(t, err.Error(), "check constraint violation")
	})

	t.Run("list", func(t *testing.T) {
		users, err := st.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := st.FindByEmail(ctx, "nobody@x.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})
}
