package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/mudskipper/internal/auth"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/users"
)

// Response messages returned to clients. Causes are logged, never returned,
// except for the update detail which carries the error message.
const (
	msgInviteCreated      = "Invitation created"
	msgInviteInvalid      = "email, permissionLevel, and invitedBy are required"
	msgInviteMisconfigure = "Missing USER_POOL_ID or TABLE_USERS env"
	msgInviteFailed       = "Failed to invite user"
	msgUpdateInvalid      = "userId and permissionLevel are required"
	msgUpdateMisconfigure = "Missing TABLE_USERS env"
	msgUpdateFailed       = "update failed"
	msgForbidden          = "forbidden"
	msgListFailed         = "Failed to list users"
	msgMeFailed           = "Failed to load permissions"
)

// Handlers exposes the user workflows over HTTP.
type Handlers struct {
	svc *users.Service

	// trustBody takes the caller from invitedBy / updatedBy when no identity
	// was established by authentication middleware.
	trustBody bool
}

// NewHandlers creates the HTTP handlers. trustBody should only be set when
// authentication is disabled.
func NewHandlers(svc *users.Service, trustBody bool) *Handlers {
	return &Handlers{svc: svc, trustBody: trustBody}
}

// Routes registers every endpoint. authMiddleware wraps all routes except the
// health check and may be nil.
func (h *Handlers) Routes(authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		authMiddleware = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()
	mux.Handle("POST /invite", authMiddleware(http.HandlerFunc(h.Invite)))
	mux.Handle("POST /update-permission", authMiddleware(http.HandlerFunc(h.UpdatePermission)))
	mux.Handle("GET /api/me", authMiddleware(http.HandlerFunc(h.Me)))
	mux.Handle("GET /api/users", authMiddleware(http.HandlerFunc(h.ListUsers)))
	mux.HandleFunc("GET /healthz", h.Health)

	return mux
}

// Invite handles POST /invite.
func (h *Handlers) Invite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if err := h.svc.InviteConfigured(); err != nil {
		logger.Error().Err(err).Msg("invite handler misconfigured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInviteMisconfigure})
		return
	}

	var req inviteRequest
	if err := decodeStrict(r.Body, &req); err != nil {
		logger.Warn().Err(err).Msg("invalid invite request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInviteInvalid})
		return
	}

	// An authenticated caller is recorded as the inviter whatever the body claims.
	invitedBy := req.InvitedBy
	if id := auth.IdentityFromContext(ctx); id != nil {
		if !strings.EqualFold(id.Email, req.InvitedBy) {
			logger.Warn().Str("claimed", req.InvitedBy).Str("caller", id.Email).Msg("invitedBy does not match the authenticated caller")
		}
		invitedBy = models.NormalizeEmail(id.Email)
	}

	res, err := h.svc.Invite(ctx, h.caller(r, req.InvitedBy), users.InviteInput{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PermissionLevel: req.PermissionLevel,
		InvitedBy:       invitedBy,
	})
	if err != nil {
		var (
			cfgErr   *users.ConfigurationError
			validErr *users.ValidationError
		)
		switch {
		case errors.As(err, &cfgErr):
			logger.Error().Err(err).Msg("invite handler misconfigured")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInviteMisconfigure})
		case errors.As(err, &validErr):
			logger.Warn().Err(err).Msg("invalid invite request")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInviteInvalid})
		case errors.Is(err, users.ErrForbidden):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: msgForbidden})
		default:
			logger.Error().Err(err).Str("email", req.Email).Msg("failed to invite user")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInviteFailed})
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		Email   string `json:"email"`
	}{Message: msgInviteCreated, Email: res.Email})
}

// UpdatePermission handles POST /update-permission.
func (h *Handlers) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if err := h.svc.UpdateConfigured(); err != nil {
		logger.Error().Err(err).Msg("update permission handler misconfigured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgUpdateMisconfigure})
		return
	}

	var req updatePermissionRequest
	if err := decodeStrict(r.Body, &req); err != nil {
		logger.Warn().Err(err).Msg("invalid update permission request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgUpdateInvalid})
		return
	}

	level := float64(*req.PermissionLevel)
	err := h.svc.UpdatePermission(ctx, h.caller(r, req.UpdatedBy), users.UpdatePermissionInput{
		UserID:          req.UserID,
		PermissionLevel: &level,
		UpdatedBy:       req.UpdatedBy,
	})
	if err != nil {
		var (
			cfgErr   *users.ConfigurationError
			validErr *users.ValidationError
		)
		switch {
		case errors.As(err, &cfgErr):
			logger.Error().Err(err).Msg("update permission handler misconfigured")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgUpdateMisconfigure})
		case errors.As(err, &validErr):
			logger.Warn().Err(err).Msg("invalid update permission request")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgUpdateInvalid})
		case errors.Is(err, users.ErrForbidden):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: msgForbidden})
		default:
			logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to update permission")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgUpdateFailed, Detail: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

// Me handles GET /api/me, reporting the caller's permission level.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := h.caller(r, r.URL.Query().Get("email"))

	level, err := h.svc.Gate().PermissionLevelOf(ctx, email)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to compute permission level")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgMeFailed})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Email           string `json:"email"`
		PermissionLevel int    `json:"permissionLevel"`
		Privileged      bool   `json:"privileged"`
	}{Email: email, PermissionLevel: level, Privileged: users.IsPrivileged(level)})
}

// ListUsers handles GET /api/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.svc.ListUsers(ctx, h.caller(r, r.URL.Query().Get("email")))
	if err != nil {
		if errors.Is(err, users.ErrForbidden) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: msgForbidden})
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list users")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgListFailed})
		return
	}

	if all == nil {
		all = []*models.User{}
	}

	writeJSON(w, http.StatusOK, struct {
		Users []*models.User `json:"users"`
	}{Users: all})
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

// caller returns the authenticated email, falling back to claimed when the
// body is trusted.
func (h *Handlers) caller(r *http.Request, claimed string) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		return id.Email
	}
	if h.trustBody {
		return claimed
	}
	return ""
}
