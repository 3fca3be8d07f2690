// Package session holds the signed-in user and bearer token for a client
// process. A Session is created once, hydrated from its Store at startup and
// cleared on logout or when the backend rejects the token.
package session

import (
	"errors"
	"sync"
)

// User is the signed-in identity as reported by the login response.
type User struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// State is what a Store persists.
type State struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ErrNoSession is returned by Store.Load when nothing is persisted.
var ErrNoSession = errors.New("no session")

// Store persists session state between runs.
type Store interface {
	Load() (State, error)
	Save(State) error
	Delete() error
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	store Store
	state State
}

// New returns an empty session backed by store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Hydrate loads persisted state. A missing session is not an error.
func (s *Session) Hydrate() error {
	st, err := s.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Set records a new login and persists it.
func (s *Session) Set(token string, user User) error {
	st := State{Token: token, User: user}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return s.store.Save(st)
}

// Clear forgets the session and removes it from the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
	return s.store.Delete()
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the signed-in user.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
