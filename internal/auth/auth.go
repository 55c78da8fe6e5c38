// Package auth is the account and session boundary for Fortuna. It
// owns password hashing, session token lifecycles and the listener
// registry that lets other components react to sign-in and sign-out.
package auth

import (
	"context"
	"errors"
	"time"

	"gitlab.com/dafibh/fortuna/internal/models"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 8

var (
	// ErrInvalidEmail means the address failed basic shape checks.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword means the password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password too short")

	// ErrEmailTaken means an account already exists for the address.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords so sign-in failures do not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionNotFound means the token matches no session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the token matched but the session is past
	// its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Event marks what kind of session change happened.
type Event string

// Session change events.
const (
	EventSignedIn  Event = "signed_in"
	EventSignedOut Event = "signed_out"
)

// Change describes a session transition delivered to listeners.
// Session is nil for sign-out events.
type Change struct {
	Event   Event
	UserID  int64
	Session *models.Session
}

// Service is the authentication boundary. Implementations hash
// credentials, mint session tokens and notify listeners on session
// changes.
type Service interface {
	// SignUp registers a new account and signs it in.
	SignUp(ctx context.Context, email, password, displayName string) (*models.User, *models.Session, error)

	// SignIn verifies credentials and mints a fresh session.
	SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error)

	// SignOut invalidates the session token. Unknown tokens are a
	// no-op so repeated sign-outs stay silent.
	SignOut(ctx context.Context, token string) error

	// GetSession resolves a token to its live session and account,
	// extending the expiry once the session crosses its halfway
	// point.
	GetSession(ctx context.Context, token string) (*models.Session, *models.User, error)

	// OnSessionChange registers a listener for sign-in and sign-out
	// events. The returned function unregisters it.
	OnSessionChange(fn func(Change)) func()
}

// UserStore is the account persistence the service needs. Satisfied by
// repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// SessionStore is the session persistence the service needs. Satisfied
// by repository.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Refresh(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
}
