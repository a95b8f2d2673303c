package directory

import (
	"context"
	"sync"
)

var _ Directory = (*Memory)(nil)

// Memory is an in-process Directory for development and tests.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]Attributes
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]Attributes)}
}

// EnsureAccount records the account if it is new.
// Usernames are compared as given, like Cognito pools without case-insensitive usernames.
func (m *Memory) EnsureAccount(ctx context.Context, email string, attrs Attributes) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[email]; ok {
		return false, nil
	}
	m.accounts[email] = attrs
	return true, nil
}

// Account returns the stored attributes for a username.
func (m *Memory) Account(email string) (Attributes, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs, ok := m.accounts[email]
	return attrs, ok
}
