/*
Package auth provides user accounts and bearer-token sessions.

PURPOSE:
  Callers of the worklog engine must be authenticated. This package
  handles registration (bcrypt password hashes), login (opaque bearer
  tokens generated from crypto/rand), and token validation with expiry.

TOKENS:
  Tokens are opaque random strings stored server-side with an expiry.
  Nothing is encoded in the token itself, so revocation is a row delete.

SEE ALSO:
  - api/server.go: Bearer-auth middleware consuming Validate
  - store/sqlite: UserStore/SessionStore persistence
*/
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/worklog-engine/worklog"
)

var (
	// ErrInvalidCredentials indicates a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound indicates the token does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the token is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// SessionTTL is how long a bearer token stays valid after login.
const SessionTTL = 30 * 24 * time.Hour

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	// SaveUser persists a new user. Fails with ErrEmailTaken on a
	// duplicate email.
	SaveUser(ctx context.Context, u User) error
	// GetUserByEmail returns a user or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// GetUser returns a user by ID or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionStore persists bearer-token sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, s Session) error
	// GetSession returns a session or ErrSessionNotFound.
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service handles registration, login, and token validation.
type Service struct {
	users    UserStore
	sessions SessionStore
	clock    worklog.Clock
}

func NewService(users UserStore, sessions SessionStore, clock worklog.Clock) *Service {
	if clock == nil {
		clock = worklog.SystemClock{}
	}
	return &Service{users: users, sessions: sessions, clock: clock}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, email, password, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.SaveUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login authenticates a user and returns a fresh bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	session := Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a bearer token to its user. Expired sessions are
// deleted eagerly.
func (s *Service) Validate(ctx context.Context, token string) (User, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return User{}, ErrSessionNotFound
	}
	if s.clock.Now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteSession(ctx, token)
		return User{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Logout invalidates a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
