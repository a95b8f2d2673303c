package users

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrForbidden is returned when the caller is not privileged.
	ErrForbidden = errors.New("caller is not permitted to manage users")

	// ErrUserNotFound is returned when a permission update targets an unknown id.
	ErrUserNotFound = errors.New("user not found")
)

// ConfigurationError reports required settings that were not supplied.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DirectoryError wraps an identity provider failure.
type DirectoryError struct {
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory: %v", e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// StoreError wraps a record store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
