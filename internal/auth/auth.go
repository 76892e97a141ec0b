// Package auth supplies the current user: e-mail and password accounts with
// bearer session tokens, or a single local user when authentication is disabled.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
)

// Mode selects how requests are authenticated.
type Mode string

const (
	// ModeDisabled treats every request as the configured local user.
	ModeDisabled Mode = "disabled"
	// ModePassword requires a bearer token obtained from SignIn or SignUp.
	ModePassword Mode = "password"
)

// DefaultSessionTTL applies when Config.SessionTTL is zero.
const DefaultSessionTTL = 7 * 24 * time.Hour

const minPasswordLen = 6

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, string, error)
}

// Config holds the authentication settings.
type Config struct {
	Mode       Mode
	LocalEmail string
	SessionTTL time.Duration
}

// Session is an issued bearer token.
type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Service signs users up, in and out, and resolves tokens to users.
type Service struct {
	users UserStore
	cfg   Config
	now   func() time.Time

	mu        sync.Mutex
	sessions  map[string]Session
	onSignOut []func(models.User)
}

// NewService returns a Service backed by users.
func NewService(users UserStore, cfg Config) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeDisabled
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		users:    users,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Mode returns the configured mode.
func (s *Service) Mode() Mode { return s.cfg.Mode }

// OnSignOut registers fn to run after a user signs out.
func (s *Service) OnSignOut(fn func(models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

func validateCredentials(email, password string) error {
	err := validation.Errors{
		"email":    validation.Validate(email, validation.Required, validation.Match(emailRe)),
		"password": validation.Validate(password, validation.Required, validation.Length(minPasswordLen, 72)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return Session{}, fmt.Errorf("auth: sign up: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign up: %w", err)
	}
	return s.issue(u), nil
}

// SignIn checks the password of email and issues a session.
// Unknown accounts and wrong passwords are indistinguishable.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	u, hash, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, fmt.Errorf("auth: sign in: invalid credentials: %w", apperr.ErrNotAuthenticated)
	}
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign in: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Session{}, fmt.Errorf("auth: sign in: invalid credentials: %w", apperr.ErrNotAuthenticated)
	}
	return s.issue(u), nil
}

func (s *Service) issue(u models.User) Session {
	sess := Session{
		Token:     uuid.NewString(),
		User:      u,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// SignOut revokes token and runs the sign-out hooks for its user.
func (s *Service) SignOut(token string) error {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	delete(s.sessions, token)
	hooks := append([]func(models.User){}, s.onSignOut...)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("auth: sign out: %w", apperr.ErrNotAuthenticated)
	}
	for _, fn := range hooks {
		fn(sess.User)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. In disabled mode the
// token is ignored and the local user is returned.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	if s.cfg.Mode == ModeDisabled {
		return s.EnsureUser(ctx, s.cfg.LocalEmail)
	}
	if token == "" {
		return models.User{}, fmt.Errorf("auth: missing token: %w", apperr.ErrNotAuthenticated)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return models.User{}, fmt.Errorf("auth: unknown token: %w", apperr.ErrNotAuthenticated)
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return models.User{}, fmt.Errorf("auth: token expired: %w", apperr.ErrNotAuthenticated)
	}
	return sess.User, nil
}

// EnsureUser returns the account for email, creating a password-less one
// when none exists. Password-less accounts cannot sign in.
func (s *Service) EnsureUser(ctx context.Context, email string) (models.User, error) {
	email = normalizeEmail(email)
	if err := validation.Validate(email, validation.Required, validation.Match(emailRe)); err != nil {
		return models.User{}, fmt.Errorf("auth: user %q: %w: %v", email, apperr.ErrValidation, err)
	}
	u, _, err := s.users.UserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, fmt.Errorf("auth: ensure user: %w", err)
	}
	u, err = s.users.CreateUser(ctx, email, "")
	if errors.Is(err, apperr.ErrAlreadyExists) {
		u, _, err = s.users.UserByEmail(ctx, email)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("auth: ensure user: %w", err)
	}
	return u, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for tok, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, tok)
			n++
		}
	}
	return n
}
