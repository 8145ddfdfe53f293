// Package session holds the signed-in user for a CLI process or a browser
// session, and decides whether that user may reach the admin area.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"go.uber.org/zap"
)

// Roles that may use the admin area.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
	RoleAuthor     = "author"
)

type UserInfo struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type User struct {
	IsAuthenticated bool
	Info            *UserInfo
}

// Anonymous is the user of a session nobody has signed in to.
var Anonymous = User{}

// Allowed reports whether u may see protected content.
func Allowed(u User) bool {
	if !u.IsAuthenticated || u.Info == nil {
		return false
	}
	switch u.Info.Role {
	case RoleAdmin, RoleSuperAdmin, RoleAuthor:
		return true
	}
	return false
}

// Resolver maps a token to the account that owns it.
type Resolver interface {
	Self(ctx context.Context, token string) (api.Account, error)
}

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (api.SignInResult, error)
}

// Backend is what a Session needs from the API. *api.Client satisfies it.
type Backend interface {
	Resolver
	Authenticator
}

func userFromAccount(a api.Account) User {
	return User{
		IsAuthenticated: true,
		Info: &UserInfo{
			ID:    a.ID,
			Name:  a.Name,
			Email: a.Email,
			Role:  a.Role,
		},
	}
}

// Session is the explicit owner of one user's token. It is safe for
// concurrent use.
type Session struct {
	backend Backend
	store   TokenStore
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
	user  User
}

func New(backend Backend, store TokenStore, logger *zap.Logger) *Session {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{backend: backend, store: store, logger: logger}
}

// Hydrate restores the session from the persisted token. A token that is
// missing, expired or rejected leaves the session anonymous; only a failure
// to read the store is returned.
func (s *Session) Hydrate(ctx context.Context) error {
	token, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", Anonymous
	if token == "" {
		return nil
	}

	acct, err := s.backend.Self(ctx, token)
	if err != nil {
		s.logger.Info("persisted token not accepted", zap.Error(err))
		if api.IsUnauthorized(err) {
			if cerr := s.store.Clear(); cerr != nil {
				s.logger.Warn("clearing rejected token", zap.Error(cerr))
			}
		}
		return nil
	}
	s.token, s.user = token, userFromAccount(acct)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	res, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return Anonymous, err
	}
	user := userFromAccount(res.User)

	s.mu.Lock()
	s.token, s.user = res.Token, user
	s.mu.Unlock()

	if err := s.store.Save(res.Token); err != nil {
		return user, fmt.Errorf("saving token: %w", err)
	}
	s.logger.Info("signed in", zap.String("user", res.User.ID), zap.String("role", res.User.Role))
	return user, nil
}

func (s *Session) Logout() error {
	s.mu.Lock()
	s.token, s.user = "", Anonymous
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}
