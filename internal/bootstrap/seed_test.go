package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store/memory"
)

const testSeed = `
invited_by: ops@example.com
users:
  - email: Admin@Example.com
    first_name: Ada
    permission_level: 5
  - email: viewer@example.com
    permission_level: 1
`

func TestParseSeed(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		seed, err := ParseSeed([]byte(testSeed))
		require.NoError(t, err)
		require.Equal(t, "ops@example.com", seed.InvitedBy)
		require.Len(t, seed.Users, 2)
		require.Equal(t, "Ada", seed.Users[0].FirstName)
	})

	t.Run("default invited_by", func(t *testing.T) {
		seed, err := ParseSeed([]byte("users:\n  - email: a@x.com\n    permission_level: 5\n"))
		require.NoError(t, err)
		require.Equal(t, "bootstrap", seed.InvitedBy)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := ParseSeed([]byte("users:\n  - permission_level: 5\n"))
		require.Error(t, err)
	})

	t.Run("level out of range", func(t *testing.T) {
		_, err := ParseSeed([]byte("users:\n  - email: a@x.com\n    permission_level: 9\n"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseSeed([]byte("users: [unterminated"))
		require.Error(t, err)
	})
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0o600))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seed.Users, 2)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()
	st := memory.NewUserStore()
	now := time.Now().UTC()

	seed, err := ParseSeed([]byte(testSeed))
	require.NoError(t, err)

	created, err := SeedUsers(ctx, st, seed, now)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	admin, err := st.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", admin.Email)
	require.Equal(t, 5, admin.PermissionLevel)
	require.Equal(t, models.UserStatusActive, admin.Status)
	require.Equal(t, "ops@example.com", admin.InvitedBy)
	require.Equal(t, "Ada", *admin.FirstName)
	require.Nil(t, admin.LastName)
	require.Equal(t, admin.CreatedAt, admin.UpdatedAt)

	// seeding twice is a no-op
	created, err = SeedUsers(ctx, st, seed, now)
	require.NoError(t, err)
	require.Zero(t, created)

	users, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}
