package directory

import (
	"context"
	"errors"
)

// ErrDirectory wraps every failure other than "account already exists".
var ErrDirectory = errors.New("directory error")

// Attributes are the optional profile attributes attached to a new account.
type Attributes struct {
	GivenName  string
	FamilyName string
}

// Directory is the external identity provider that owns login-capable accounts.
type Directory interface {
	// EnsureAccount creates an account for email unless one already exists.
	// created is false when the account was already present, which is not an error.
	EnsureAccount(ctx context.Context, email string, attrs Attributes) (created bool, err error)
}
