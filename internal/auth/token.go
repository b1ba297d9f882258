// ABOUTME: Session authority issuing and resolving opaque bearer tokens stored on user rows
// ABOUTME: Also handles signup and password authentication against the credential engine

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-forum/internal/credential"
	"github.com/2389/coven-forum/internal/store"
)

// DefaultTokenTTL is how long an issued token stays valid
const DefaultTokenTTL = 24 * time.Hour

// Authority errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrUserExists    = errors.New("user already exists")
	ErrBadPassword   = errors.New("password is not acceptable")
	ErrUnknownUser   = errors.New("user does not exist")
	ErrWrongPassword = errors.New("wrong password")
)

// Identity is the authenticated caller
type Identity struct {
	ID   int64
	Name string
}

// Authority issues tokens, resolves them back to users, and owns signup
type Authority struct {
	users  store.UserStore
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Authority
type Option func(*Authority)

// WithClock replaces time.Now, for tests that need to move past expiry
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// NewAuthority creates an Authority. A non-positive ttl means DefaultTokenTTL.
func NewAuthority(users store.UserStore, ttl time.Duration, opts ...Option) *Authority {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	a := &Authority{
		users:  users,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default().With("component", "auth"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TTL returns the token lifetime
func (a *Authority) TTL() time.Duration { return a.ttl }

// Signup creates a user. The name check runs before the password policy.
func (a *Authority) Signup(ctx context.Context, name, password string) (*store.User, error) {
	exists, err := a.users.UserExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}
	if !credential.IsAcceptablePassword(password) {
		return nil, ErrBadPassword
	}

	hash, salt, err := credential.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &store.User{Name: name, PasswordHash: hash, PasswordSalt: salt}
	if err := a.users.CreateUser(ctx, u); err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, store.ErrUsernameExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	a.logger.Info("user signed up", "id", u.ID, "name", u.Name)
	return u, nil
}

// Authenticate checks the password and issues a fresh token
func (a *Authority) Authenticate(ctx context.Context, name, password string) (string, error) {
	u, err := a.users.GetUserByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}

	if !credential.VerifyPassword(password, u.PasswordHash, u.PasswordSalt) {
		a.logger.Warn("wrong password", "name", name)
		return "", ErrWrongPassword
	}

	return a.issue(ctx, u)
}

// IssueToken generates a token for name, stores it with expiry now+ttl, and returns it.
// Any earlier token for the user stops working.
func (a *Authority) IssueToken(ctx context.Context, name string) (string, error) {
	u, err := a.users.GetUserByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}
	return a.issue(ctx, u)
}

func (a *Authority) issue(ctx context.Context, u *store.User) (string, error) {
	token, err := credential.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	expiresAt := a.now().Add(a.ttl)
	if err := a.users.SetUserToken(ctx, u.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}

	a.logger.Debug("token issued", "user", u.ID, "expires_at", expiresAt)
	return token, nil
}

// ResolveToken returns the identity holding token.
// Zero or several matching users, or an expired token, give ErrInvalidToken.
func (a *Authority) ResolveToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	users, err := a.users.ListUsersByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("looking up token: %w", err)
	}
	if len(users) != 1 {
		if len(users) > 1 {
			a.logger.Error("token shared by several users", "count", len(users))
		}
		return nil, ErrInvalidToken
	}

	u := users[0]
	if u.TokenExpiresAt == nil || !a.now().Before(*u.TokenExpiresAt) {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: u.ID, Name: u.Name}, nil
}
