// Package session tracks who is signed in and keeps the access token across
// runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"studenthub/client"
	"studenthub/domain"
)

// ErrInvalidCredentials wraps every login failure.
var ErrInvalidCredentials = errors.New("invalid credentials")

const msgInvalidLogin = "Invalid username or password"

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is the auth state machine. The zero value is not usable; call New.
type Session struct {
	factory *client.Factory
	store   TokenStore
	log     *log.Logger

	mu      sync.RWMutex
	user    *domain.User
	token   string
	loading bool
	err     string
}

func New(factory *client.Factory, store TokenStore, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{factory: factory, store: store, log: logger}
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) become(user *domain.User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
}

// Restore validates the persisted token. A token the API rejects is removed
// from the store and the session stays anonymous.
func (s *Session) Restore(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	token, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		s.become(nil, "")
		return nil
	}
	if err != nil {
		s.become(nil, "")
		return fmt.Errorf("load token: %w", err)
	}

	me, err := s.factory.For(token).Auth.Me(ctx)
	if err != nil {
		s.log.WithError(err).Info("stored token rejected, signing out")
		if cerr := s.store.Clear(ctx); cerr != nil {
			s.log.WithError(cerr).Warn("clear stored token")
		}
		s.become(nil, "")
		return fmt.Errorf("validate stored token: %w", err)
	}
	s.become(&me, token)
	return nil
}

// Login exchanges credentials for a token, loads the profile and persists the
// token. On failure the previous user, token and stored token are kept, so an
// anonymous session stays anonymous.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()

	user, token, err := s.authenticate(ctx, username, password)
	if err != nil {
		s.mu.Lock()
		s.err = msgInvalidLogin
		s.mu.Unlock()
		s.log.WithField("username", username).WithError(err).Warn("login failed")
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.become(&user, token)
	s.log.WithFields(log.Fields{"user_id": user.UserID, "username": user.Username}).Debug("signed in")
	return nil
}

func (s *Session) authenticate(ctx context.Context, username, password string) (domain.User, string, error) {
	tok, err := s.factory.For("").Auth.Token(ctx, username, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if tok.AccessToken == "" {
		return domain.User{}, "", errors.New("empty access token")
	}
	me, err := s.factory.For(tok.AccessToken).Auth.Me(ctx)
	if err != nil {
		return domain.User{}, "", err
	}
	return me, tok.AccessToken, nil
}

// Logout forgets the token locally and in the store.
func (s *Session) Logout(ctx context.Context) error {
	s.become(nil, "")
	return s.store.Clear(ctx)
}

// Client returns the API bundle for the current token.
func (s *Session) Client() *client.Bundle {
	return s.factory.For(s.Token())
}

// User returns the signed-in user, or nil.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) State() State {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message shown after a failed login, or "".
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
