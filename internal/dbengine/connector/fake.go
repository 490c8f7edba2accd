package connector

import (
	"context"
	"sync"
	"time"
)

// Fake is the in-memory connector behind the fake plugin. It records every
// capability call and supports failure injection, which makes it the
// substrate for engine tests and local development without a real database.
type Fake struct {
	mu sync.Mutex

	users        map[string]string
	rootPassword string

	VerifyErr error
	CreateErr error
	RevokeErr error
	RotateErr error

	verifyCalls int
	revokeCalls int
}

// NewFake creates an empty fake connector.
func NewFake() *Fake {
	return &Fake{users: make(map[string]string)}
}

func (f *Fake) VerifyConnection(_ context.Context, _ *Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.VerifyErr
}

func (f *Fake) CreateUser(_ context.Context, _ *Config, username, password string, _ []string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.users[username] = password
	return nil
}

func (f *Fake) RevokeUser(_ context.Context, _ *Config, username string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	if f.RevokeErr != nil {
		return f.RevokeErr
	}
	delete(f.users, username)
	return nil
}

func (f *Fake) RotateRootPassword(_ context.Context, _ *Config, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RotateErr != nil {
		return f.RotateErr
	}
	f.rootPassword = newPassword
	return nil
}

// HasUser reports whether a user currently exists.
func (f *Fake) HasUser(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok
}

// UserCount returns the number of live users.
func (f *Fake) UserCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// RootPassword returns the last rotated admin password.
func (f *Fake) RootPassword() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rootPassword
}

// VerifyCalls returns how many times VerifyConnection ran.
func (f *Fake) VerifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

// RevokeCalls returns how many times RevokeUser ran, including failures.
func (f *Fake) RevokeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revokeCalls
}
