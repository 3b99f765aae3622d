// Package session implements admin login: password verification, signed
// time-bounded tokens and the one-active-session-per-user rule.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/store"
)

var (
	// ErrAlreadyLoggedIn is returned by Login while the user has an active session.
	ErrAlreadyLoggedIn = errors.New("user already logged in")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned by Validate for any unusable token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingFields is returned by Register when username or password is empty.
	ErrMissingFields = errors.New("username and password are required")
	// ErrUsernameTaken is returned by Register for an existing username.
	ErrUsernameTaken = errors.New("username already registered")
)

// AdminStore is the part of the store the session manager needs.
type AdminStore interface {
	CreateAdmin(ctx context.Context, username, passwordHash string) (model.Admin, error)
	AdminByUsername(ctx context.Context, username string) (model.Admin, error)
}

// Options configures a Manager.
type Options struct {
	Secret     []byte
	TTL        time.Duration
	BcryptCost int
}

// Manager issues and checks admin session tokens.
type Manager struct {
	admins   AdminStore
	sessions Store
	opts     Options
	log      *slog.Logger
	now      func() time.Time

	// loginMu serializes the check-then-record step of Login.
	loginMu sync.Mutex
}

// NewManager creates a Manager. A zero TTL means one hour.
func NewManager(admins AdminStore, sessions Store, opts Options, log *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Manager{
		admins:   admins,
		sessions: sessions,
		opts:     opts,
		log:      log.With("component", "session"),
		now:      time.Now,
	}
}

// Register creates an admin account with a hashed password.
func (m *Manager) Register(ctx context.Context, username, password string) (model.Admin, error) {
	if username == "" || password == "" {
		return model.Admin{}, ErrMissingFields
	}
	hash, err := HashPassword(password, m.opts.BcryptCost)
	if err != nil {
		return model.Admin{}, err
	}
	admin, err := m.admins.CreateAdmin(ctx, username, hash)
	if errors.Is(err, store.ErrDuplicate) {
		return model.Admin{}, ErrUsernameTaken
	}
	if err != nil {
		return model.Admin{}, err
	}
	m.log.Info("admin registered", "username", username)
	return admin, nil
}

// Login verifies the credentials and starts a session, returning its token.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if _, active := m.sessions.Get(username); active {
		return "", ErrAlreadyLoggedIn
	}

	admin, err := m.admins.AdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("looking up admin: %w", err)
	}

	ok, err := VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	issuedAt := m.now()
	token, claims, err := signToken(username, issuedAt, m.opts.TTL, m.opts.Secret)
	if err != nil {
		return "", err
	}

	err = m.sessions.Add(Session{
		Username:  username,
		TokenID:   claims.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if errors.Is(err, errSessionExists) {
		return "", ErrAlreadyLoggedIn
	}
	if err != nil {
		return "", err
	}

	m.log.Info("admin logged in", "username", username)
	return token, nil
}

// Logout ends the session of username. It is a no-op without a session.
func (m *Manager) Logout(username string) {
	m.sessions.Delete(username)
	m.log.Info("admin logged out", "username", username)
}

// Validate returns the username a token was issued to. It fails when the
// signature is wrong, the token has expired, or the session it belongs to
// has ended.
func (m *Manager) Validate(token string) (string, error) {
	claims, err := parseToken(token, m.opts.Secret, m.now)
	if err != nil {
		m.log.Debug("session token rejected", "error", err)
		return "", ErrUnauthorized
	}

	s, ok := m.sessions.Get(claims.Subject)
	if !ok || s.TokenID != claims.ID {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
