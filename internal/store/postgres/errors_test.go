package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/mudskipper/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	require.NoError(t, mapPostgresError(nil))

	plain := errors.New("boom")
	require.Equal(t, plain, mapPostgresError(plain))

	tests := []struct {
		name      string
		code      string
		contains  string
		throttled bool
	}{
		{name: "check violation", code: pgerrcode.CheckViolation, contains: "check constraint violation"},
		{name: "connection failure", code: pgerrcode.ConnectionFailure, contains: "database connection error"},
		{name: "too many connections", code: pgerrcode.TooManyConnections, contains: "database resource limit", throttled: true},
		{name: "unknown", code: pgerrcode.SyntaxError, contains: "postgres error [42601]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, Message: "msg"}
			err := mapPostgresError(pgErr)
			require.Contains(t, err.Error(), tt.contains)
			require.ErrorAs(t, err, &pgErr)
			require.Equal(t, tt.throttled, errors.Is(err, store.ErrThrottled))
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, 1, migrations[0].version)
	require.Contains(t, migrations[0].content, "CREATE TABLE IF NOT EXISTS users")

	for i := 1; i < len(migrations); i++ {
		require.Less(t, migrations[i-1].version, migrations[i].version)
	}
}
