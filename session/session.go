//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_identity_provider.go -package=mocks

// Package session tracks the current authenticated identity with an
// explicit lifecycle: Unauthenticated -> Authenticated -> Unauthenticated.
package session

import (
	"sync"

	"feedlab/domain"
)

// IdentityProvider authenticates credentials and restores saved
// sessions. Implemented by services.AuthService; consumed, not
// implemented, here.
type IdentityProvider interface {
	Authenticate(email, password string) (domain.Identity, error)
	Verify(token string) (domain.Identity, error)
}

// State holds one caller's current identity. Login and Logout are the
// only mutations; Current never blocks and never performs I/O.
// Concurrent logins race last-write-wins.
type State struct {
	mu       sync.RWMutex
	provider IdentityProvider
	current  *domain.Identity
}

func New(provider IdentityProvider) *State {
	return &State{provider: provider}
}

// Login delegates to the provider. On failure the current identity is
// left untouched; there is no partial state.
func (s *State) Login(email, password string) (domain.Identity, error) {
	identity, err := s.provider.Authenticate(email, password)
	if err != nil {
		return domain.Identity{}, err
	}

	s.mu.Lock()
	s.current = &identity
	s.mu.Unlock()
	return identity, nil
}

// Restore seeds the session from a previously issued token. Meant to be
// called once, at connection setup, before the session is otherwise
// used.
func (s *State) Restore(token string) (domain.Identity, error) {
	identity, err := s.provider.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}

	s.mu.Lock()
	s.current = &identity
	s.mu.Unlock()
	return identity, nil
}

// Logout clears the current identity. Idempotent.
func (s *State) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the authenticated identity, or nil.
func (s *State) Current() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
