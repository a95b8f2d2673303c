package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPrivileged(t *testing.T) {
	tests := []struct {
		level    int
		expected bool
	}{
		{level: 0, expected: false},
		{level: 1, expected: false},
		{level: 4, expected: false},
		{level: 5, expected: true},
		{level: 6, expected: true},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, IsPrivileged(tt.level), "level %d", tt.level)
	}
}

func TestValidPermissionLevel(t *testing.T) {
	require.False(t, ValidPermissionLevel(0))
	require.True(t, ValidPermissionLevel(1))
	require.True(t, ValidPermissionLevel(5))
	require.False(t, ValidPermissionLevel(6))
	require.False(t, ValidPermissionLevel(-1))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "a@x.com", NormalizeEmail("A@X.com"))
	require.Equal(t, "a@x.com", NormalizeEmail("a@x.com"))
}

func TestUser_DisplayName(t *testing.T) {
	first, last, empty := "Ada", "Lovelace", ""

	require.Equal(t, "Ada Lovelace", (&User{FirstName: &first, LastName: &last}).DisplayName())
	require.Equal(t, "Ada", (&User{FirstName: &first}).DisplayName())
	require.Equal(t, "Lovelace", (&User{FirstName: &empty, LastName: &last}).DisplayName())
	require.Empty(t, (&User{}).DisplayName())
}

func TestUser_Clone(t *testing.T) {
	first := "Ada"
	u := &User{ID: "u1", FirstName: &first}

	clone := u.Clone()
	*clone.FirstName = "Grace"
	clone.ID = "u2"

	require.Equal(t, "Ada", *u.FirstName)
	require.Equal(t, "u1", u.ID)
}
