package users

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/mudskipper/internal/directory"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
	"github.com/wolfeidau/mudskipper/internal/telemetry"
)

// Config holds the external resource names the workflows depend on.
type Config struct {
	UserPoolID string
	UsersTable string

	// Enforce requires callers to be privileged. Disable only to bootstrap an empty table.
	Enforce bool
}

// InviteInput is the validated shape of an invite request.
type InviteInput struct {
	Email           string
	FirstName       *string
	LastName        *string
	PermissionLevel *float64
	InvitedBy       string
}

// InviteResult describes a completed invite.
type InviteResult struct {
	// Email is the address exactly as supplied by the caller.
	Email          string
	ID             string
	AccountCreated bool
}

// UpdatePermissionInput is the shape of a permission update request.
type UpdatePermissionInput struct {
	UserID          string
	PermissionLevel *float64
	UpdatedBy       string
}

// Service runs the invite and permission update workflows.
type Service struct {
	cfg       Config
	users     store.UserStore
	directory directory.Directory
	gate      *Gate
	metrics   *telemetry.Metrics

	now   func() time.Time
	newID func() (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service using the supplied store and directory.
func NewService(cfg Config, users store.UserStore, dir directory.Directory, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		users:     users,
		directory: dir,
		gate:      NewGate(users),
		metrics:   telemetry.GetMetrics(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate returns the authorization gate backed by the same store.
func (s *Service) Gate() *Gate {
	return s.gate
}

// InviteConfigured returns a ConfigurationError unless both the pool and table are set.
func (s *Service) InviteConfigured() error {
	var missing []string
	if s.cfg.UserPoolID == "" {
		missing = append(missing, "USER_POOL_ID")
	}
	if s.cfg.UsersTable == "" {
		missing = append(missing, "TABLE_USERS")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// UpdateConfigured returns a ConfigurationError unless the table is set.
func (s *Service) UpdateConfigured() error {
	if s.cfg.UsersTable == "" {
		return &ConfigurationError{Missing: []string{"TABLE_USERS"}}
	}
	return nil
}

// Invite provisions a directory account and then inserts an active user record.
// The directory call always precedes the insert; nothing is written if it fails.
func (s *Service) Invite(ctx context.Context, caller string, in InviteInput) (*InviteResult, error) {
	start := time.Now()
	res, err := s.invite(ctx, caller, in)
	s.record(ctx, s.metrics.InvitesTotal, "invite", start, err)
	return res, err
}

func (s *Service) invite(ctx context.Context, caller string, in InviteInput) (*InviteResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("caller", caller).Str("email", in.Email).Logger()

	if err := s.InviteConfigured(); err != nil {
		return nil, err
	}

	level, err := validateInvite(in)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller); err != nil {
		return nil, err
	}

	created, err := s.directory.EnsureAccount(ctx, in.Email, directory.Attributes{
		GivenName:  deref(in.FirstName),
		FamilyName: deref(in.LastName),
	})
	if err != nil {
		return nil, &DirectoryError{Err: err}
	}
	if created {
		s.metrics.DirectoryAccountsCreated.Add(ctx, 1)
	} else {
		s.metrics.DirectoryAccountsExisting.Add(ctx, 1)
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:              id,
		Email:           models.NormalizeEmail(in.Email),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		PermissionLevel: level,
		Status:          models.UserStatusActive,
		InvitedBy:       in.InvitedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if created {
			logger.Error().Err(err).Msg("directory account created but user record insert failed, account is orphaned")
		}
		return nil, &StoreError{Op: "insert", Err: err}
	}

	logger.Info().
		Str("user_id", id).
		Int("permission_level", user.PermissionLevel).
		Bool("account_created", created).
		Msg("user invited")

	return &InviteResult{Email: in.Email, ID: id, AccountCreated: created}, nil
}

// UpdatePermission changes the permission level of an existing user.
// updatedBy is logged but not persisted.
func (s *Service) UpdatePermission(ctx context.Context, caller string, in UpdatePermissionInput) error {
	start := time.Now()
	err := s.updatePermission(ctx, caller, in)
	s.record(ctx, s.metrics.PermissionUpdatesTotal, "update_permission", start, err)
	return err
}

func (s *Service) updatePermission(ctx context.Context, caller string, in UpdatePermissionInput) error {
	if err := s.UpdateConfigured(); err != nil {
		return err
	}

	level, err := validateUpdate(in)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, caller); err != nil {
		return err
	}

	if err := s.users.UpdatePermission(ctx, in.UserID, level, s.now()); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return &StoreError{Op: "update permission", Err: err}
	}

	zerolog.Ctx(ctx).Info().
		Str("caller", caller).
		Str("user_id", in.UserID).
		Str("updated_by", in.UpdatedBy).
		Int("permission_level", level).
		Msg("permission updated")

	return nil
}

// ListUsers returns every record to a privileged caller.
func (s *Service) ListUsers(ctx context.Context, caller string) ([]*models.User, error) {
	if err := s.authorize(ctx, caller); err != nil {
		return nil, err
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return all, nil
}

func (s *Service) authorize(ctx context.Context, caller string) error {
	if !s.cfg.Enforce {
		return nil
	}

	level, err := s.gate.PermissionLevelOf(ctx, caller)
	if err != nil {
		return err
	}
	if !IsPrivileged(level) {
		s.metrics.ForbiddenTotal.Add(ctx, 1)
		zerolog.Ctx(ctx).Warn().Str("caller", caller).Int("permission_level", level).Msg("caller is not privileged")
		return ErrForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, counter metric.Int64Counter, workflow string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("result", resultOf(err)),
	)
	counter.Add(ctx, 1, attrs)
	s.metrics.WorkflowDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

func resultOf(err error) string {
	var (
		cfgErr   *ConfigurationError
		validErr *ValidationError
		dirErr   *DirectoryError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &cfgErr):
		return "misconfigured"
	case errors.As(err, &validErr):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.As(err, &dirErr):
		return "directory_error"
	default:
		return "store_error"
	}
}

func validateInvite(in InviteInput) (int, error) {
	if in.Email == "" {
		return 0, &ValidationError{Field: "email", Reason: "required"}
	}
	if in.PermissionLevel == nil {
		return 0, &ValidationError{Field: "permissionLevel", Reason: "required"}
	}
	level, err := validateLevel(*in.PermissionLevel)
	if err != nil {
		return 0, err
	}
	if in.InvitedBy == "" {
		return 0, &ValidationError{Field: "invitedBy", Reason: "required"}
	}
	return level, nil
}

func validateUpdate(in UpdatePermissionInput) (int, error) {
	if in.UserID == "" {
		return 0, &ValidationError{Field: "userId", Reason: "required"}
	}
	if in.PermissionLevel == nil {
		return 0, &ValidationError{Field: "permissionLevel", Reason: "required"}
	}
	return validateLevel(*in.PermissionLevel)
}

// validateLevel accepts any finite whole number in the permission range, so
// 3 and 3.0 are the same level.
func validateLevel(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: "permissionLevel", Reason: "must be a finite number"}
	}
	if v < models.PermissionLevelMin || v > models.PermissionLevelMax {
		return 0, &ValidationError{Field: "permissionLevel", Reason: "must be between 1 and 5"}
	}
	if v != math.Trunc(v) {
		return 0, &ValidationError{Field: "permissionLevel", Reason: "must be a whole number"}
	}
	return int(v), nil
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
