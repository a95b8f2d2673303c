package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 * 1024

var validate = validator.New(validator.WithRequiredStructEnabled())

type inviteRequest struct {
	Email           string   `json:"email" validate:"required,max=320"`
	FirstName       *string  `json:"firstName,omitempty" validate:"omitempty,max=256"`
	LastName        *string  `json:"lastName,omitempty" validate:"omitempty,max=256"`
	PermissionLevel *float64 `json:"permissionLevel" validate:"required,min=1,max=5"`
	InvitedBy       string   `json:"invitedBy" validate:"required,max=320"`
}

type updatePermissionRequest struct {
	UserID          string  `json:"userId" validate:"required,max=128"`
	PermissionLevel *number `json:"permissionLevel" validate:"required"`
	UpdatedBy       string  `json:"updatedBy" validate:"max=320"`
}

// number accepts a JSON number or a string holding one.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return errors.New("permissionLevel is null")
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("permissionLevel %q is not numeric", s)
		}
		*n = number(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// decodeStrict reads a single JSON object into dst, rejecting unknown fields,
// trailing data and anything the validate tags disallow.
func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if dec.More() {
		return errors.New("decode request: unexpected trailing data")
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
