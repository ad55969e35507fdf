package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/upstream"
)

// Session domain errors.
var (
	ErrSessionNotFound = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Session not found"}
	ErrSessionExpired  = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Session expired"}
)

// Session is one authenticated browser session. The browser holds only the
// opaque ID in a cookie; the upstream bearer token stays server-side.
type Session struct {
	ID        string
	Token     string
	User      domain.User
	Remember  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) ([]string, error)
}

// IdentityAPI is the upstream identity surface.
type IdentityAPI interface {
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
	Profile(ctx context.Context, token string) (*domain.User, error)
}

// SessionService owns auth state: login hydrates it, logout tears it down.
// It is injected, never global, so tests can substitute it.
type SessionService interface {
	// Login verifies credentials upstream and creates a session. With
	// remember set the session (and cookie) lasts the remember TTL instead
	// of the default.
	Login(ctx context.Context, email, password string, remember bool) (*Session, error)

	// Get loads a live session by ID. Expired sessions are purged and
	// reported as ErrSessionExpired.
	Get(ctx context.Context, id string) (*Session, error)

	// Profile fetches the live profile from the identity provider. When the
	// upstream is unreachable the session's cached copy is served instead.
	Profile(ctx context.Context, sess *Session) (*domain.User, error)

	// Logout deletes the session. Missing sessions are not an error.
	Logout(ctx context.Context, id string) error

	// PurgeExpired deletes all expired sessions and returns their IDs so the
	// caller can evict any in-memory state keyed by them.
	PurgeExpired(ctx context.Context) ([]string, error)
}

type sessionService struct {
	api         IdentityAPI
	store       SessionStore
	ttl         time.Duration
	rememberTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSessionService creates a session service with the given lifetimes.
func NewSessionService(api IdentityAPI, store SessionStore, ttl, rememberTTL time.Duration, logger *slog.Logger) SessionService {
	return &sessionService{
		api:         api,
		store:       store,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *sessionService) Login(ctx context.Context, email, password string, remember bool) (*Session, error) {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}
	expiresAt := now.Add(ttl)

	// The session must not outlive the bearer token it fronts.
	if exp := tokenExpiry(result.Token); !exp.IsZero() && exp.Before(expiresAt) {
		expiresAt = exp
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Token:     result.Token,
		User:      result.User,
		Remember:  remember,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, domain.Internal(err, "session.login", "failed to persist session")
	}
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.now().After(sess.ExpiresAt) {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (s *sessionService) Profile(ctx context.Context, sess *Session) (*domain.User, error) {
	user, err := s.api.Profile(ctx, sess.Token)
	if err != nil {
		if domain.IsCode(err, domain.EUNAVAILABLE) {
			cached := sess.User
			return &cached, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *sessionService) Logout(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *sessionService) PurgeExpired(ctx context.Context) ([]string, error) {
	return s.store.DeleteExpired(ctx)
}

// tokenExpiry reads the exp claim from the upstream bearer token without
// verifying the signature: authenticity is the upstream's concern, we only
// need the lifetime. Returns the zero time for opaque or claimless tokens.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
