package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
	"gopkg.in/yaml.v3"
)

// SeedFile lists users to create when an environment is first bootstrapped.
//
//	users:
//	  - email: admin@example.com
//	    first_name: Ada
//	    permission_level: 5
type SeedFile struct {
	InvitedBy string     `yaml:"invited_by"`
	Users     []SeedUser `yaml:"users"`
}

// SeedUser is a single entry in a seed file.
type SeedUser struct {
	Email           string `yaml:"email"`
	FirstName       string `yaml:"first_name"`
	LastName        string `yaml:"last_name"`
	PermissionLevel int    `yaml:"permission_level"`
}

// LoadSeedFile reads and validates a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return ParseSeed(data)
}

// ParseSeed decodes a seed document and validates each entry.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if seed.InvitedBy == "" {
		seed.InvitedBy = "bootstrap"
	}

	for i, u := range seed.Users {
		if u.Email == "" {
			return nil, fmt.Errorf("seed user %d: email is required", i)
		}
		if !models.ValidPermissionLevel(u.PermissionLevel) {
			return nil, fmt.Errorf("seed user %s: permission_level must be between %d and %d",
				u.Email, models.PermissionLevelMin, models.PermissionLevelMax)
		}
	}

	return &seed, nil
}

// SeedUsers inserts each seed user whose email is not already present.
// Returns the number of users created.
func SeedUsers(ctx context.Context, users store.UserStore, seed *SeedFile, now time.Time) (int, error) {
	created := 0
	for _, su := range seed.Users {
		_, err := users.FindByEmail(ctx, su.Email)
		if err == nil {
			log.Info().Str("email", su.Email).Msg("Seed user already exists, skipping")
			continue
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			return created, fmt.Errorf("failed to look up seed user %s: %w", su.Email, err)
		}

		user := &models.User{
			ID:              uuid.Must(uuid.NewV7()).String(),
			Email:           models.NormalizeEmail(su.Email),
			FirstName:       optional(su.FirstName),
			LastName:        optional(su.LastName),
			PermissionLevel: su.PermissionLevel,
			Status:          models.UserStatusActive,
			InvitedBy:       seed.InvitedBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := users.Insert(ctx, user); err != nil {
			return created, fmt.Errorf("failed to insert seed user %s: %w", su.Email, err)
		}

		log.Info().
			Str("id", user.ID).
			Str("email", user.Email).
			Int("permission_level", user.PermissionLevel).
			Msg("Seeded user")
		created++
	}

	return created, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
