package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/dafibh/fortuna/internal/logger"
	"gitlab.com/dafibh/fortuna/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type service struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

// NewService creates the Postgres-backed auth service. Sessions live
// for ttl from their last refresh.
func NewService(users UserStore, sessions SessionStore, ttl time.Duration) Service {
	return &service{
		users:     users,
		sessions:  sessions,
		ttl:       ttl,
		log:       logger.Component("auth"),
		listeners: make(map[int]func(Change)),
	}
}

func (s *service) SignUp(ctx context.Context, email, password, displayName string) (*models.User, *models.Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, nil, ErrWeakPassword
	}

	// The unique index on LOWER(email) backstops this check against
	// concurrent registrations.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    string(hash),
		DisplayName:     strings.TrimSpace(displayName),
		DefaultCurrency: models.DefaultCurrency,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("email", logger.HashEmail(email)).Msg("account created")
	s.notify(Change{Event: EventSignedIn, UserID: user.ID, Session: session})
	return user, session, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Debug().Str("email", logger.HashEmail(email)).Msg("password mismatch")
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("email", logger.HashEmail(email)).Msg("signed in")
	s.notify(Change{Event: EventSignedIn, UserID: user.ID, Session: session})
	return user, session, nil
}

func (s *service) SignOut(ctx context.Context, token string) error {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		// Already gone. Sign-out stays idempotent.
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.log.Info().Str("user", logger.HashUserID(session.UserID)).Msg("signed out")
	s.notify(Change{Event: EventSignedOut, UserID: session.UserID})
	return nil
}

func (s *service) GetSession(ctx context.Context, token string) (*models.Session, *models.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, ErrSessionNotFound
	}

	now := time.Now()
	if session.Expired(now) {
		// Drop it so the expired token cannot linger.
		_ = s.sessions.Delete(ctx, token)
		return nil, nil, ErrSessionExpired
	}

	// Sliding expiry: an active session past its halfway point gets a
	// full TTL again.
	if session.ExpiresAt.Sub(now) < s.ttl/2 {
		session.ExpiresAt = now.Add(s.ttl)
		if err := s.sessions.Refresh(ctx, token, session.ExpiresAt); err != nil {
			s.log.Warn().Err(err).Msg("failed to refresh session expiry")
		}
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return session, user, nil
}

func (s *service) OnSessionChange(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notify invokes listeners synchronously on the calling goroutine, in
// no particular order. The snapshot lets a listener unsubscribe itself
// without deadlocking.
func (s *service) notify(change Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (s *service) startSession(ctx context.Context, userID int64) (*models.Session, error) {
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".")
}
