package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/upstream"
)

type mockIdentityAPI struct {
	LoginFunc   func(ctx context.Context, email, password string) (*upstream.LoginResult, error)
	ProfileFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockIdentityAPI) Login(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, domain.Unauthorized("upstream.login", "Invalid credentials")
}

func (m *mockIdentityAPI) Profile(ctx context.Context, token string) (*domain.User, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, token)
	}
	return nil, domain.Unauthorized("upstream.profile", "Invalid token")
}

type memorySessionStore struct {
	sessions map[string]*Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*Session)}
}

func (s *memorySessionStore) Create(ctx context.Context, sess *Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) DeleteExpired(ctx context.Context) ([]string, error) {
	var ids []string
	for id, sess := range s.sessions {
		if time.Now().After(sess.ExpiresAt) {
			delete(s.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func loginAPI(token string) *mockIdentityAPI {
	return &mockIdentityAPI{
		LoginFunc: func(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
			return &upstream.LoginResult{
				Token: token,
				User:  domain.User{ID: "u1", Name: "Somchai", Email: email, Role: "customer"},
			}, nil
		},
	}
}

func TestSessionLogin(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("remember extends the lifetime", func(t *testing.T) {
		store := newMemorySessionStore()
		svc := NewSessionService(loginAPI("opaque-token"), store, 24*time.Hour, 7*24*time.Hour, testLogger()).(*sessionService)
		svc.now = func() time.Time { return now }

		sess, err := svc.Login(context.Background(), "a@b.co", "pw", true)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if want := now.Add(7 * 24 * time.Hour); !sess.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, sess.ExpiresAt)
		}
		if !sess.Remember {
			t.Error("expected remember flag set")
		}
	})

	t.Run("default lifetime without remember", func(t *testing.T) {
		store := newMemorySessionStore()
		svc := NewSessionService(loginAPI("opaque-token"), store, 24*time.Hour, 7*24*time.Hour, testLogger()).(*sessionService)
		svc.now = func() time.Time { return now }

		sess, err := svc.Login(context.Background(), "a@b.co", "pw", false)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if want := now.Add(24 * time.Hour); !sess.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, sess.ExpiresAt)
		}
	})

	t.Run("session never outlives the bearer token", func(t *testing.T) {
		tokenExp := now.Add(2 * time.Hour)
		store := newMemorySessionStore()
		svc := NewSessionService(loginAPI(signedToken(t, tokenExp)), store, 24*time.Hour, 7*24*time.Hour, testLogger()).(*sessionService)
		svc.now = func() time.Time { return now }

		sess, err := svc.Login(context.Background(), "a@b.co", "pw", true)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if !sess.ExpiresAt.Equal(tokenExp) {
			t.Errorf("expected expiry capped at token exp %v, got %v", tokenExp, sess.ExpiresAt)
		}
	})

	t.Run("upstream rejection passes through", func(t *testing.T) {
		api := &mockIdentityAPI{
			LoginFunc: func(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
				return nil, domain.Rejected("upstream.login", "อีเมลหรือรหัสผ่านไม่ถูกต้อง")
			},
		}
		svc := NewSessionService(api, newMemorySessionStore(), time.Hour, time.Hour, testLogger())

		_, err := svc.Login(context.Background(), "a@b.co", "bad", false)
		if !domain.IsCode(err, domain.EREJECTED) {
			t.Fatalf("expected rejected, got %v", err)
		}
		if got := domain.ErrorMessage(err); got != "อีเมลหรือรหัสผ่านไม่ถูกต้อง" {
			t.Errorf("expected verbatim reason, got %q", got)
		}
	})
}

func TestSessionGet(t *testing.T) {
	t.Run("purges expired sessions", func(t *testing.T) {
		store := newMemorySessionStore()
		svc := NewSessionService(loginAPI("tok"), store, time.Hour, time.Hour, testLogger()).(*sessionService)

		sess, err := svc.Login(context.Background(), "a@b.co", "pw", false)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}

		svc.now = func() time.Time { return sess.ExpiresAt.Add(time.Minute) }
		_, err = svc.Get(context.Background(), sess.ID)
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
		if _, ok := store.sessions[sess.ID]; ok {
			t.Error("expected expired session deleted from store")
		}
	})

	t.Run("unknown id is unauthorized", func(t *testing.T) {
		svc := NewSessionService(loginAPI("tok"), newMemorySessionStore(), time.Hour, time.Hour, testLogger())
		_, err := svc.Get(context.Background(), "nope")
		if !domain.IsCode(err, domain.EUNAUTHORIZED) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestSessionPurgeExpired(t *testing.T) {
	store := newMemorySessionStore()
	svc := NewSessionService(loginAPI("tok"), store, time.Hour, time.Hour, testLogger())

	live, err := svc.Login(context.Background(), "live@b.co", "pw", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	expired, err := svc.Login(context.Background(), "old@b.co", "pw", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	store.sessions[expired.ID].ExpiresAt = time.Now().Add(-time.Minute)

	ids, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	// The IDs come back so the caller can evict checkout state keyed by them.
	if len(ids) != 1 || ids[0] != expired.ID {
		t.Errorf("expected [%s], got %v", expired.ID, ids)
	}
	if _, ok := store.sessions[live.ID]; !ok {
		t.Error("live session must survive the purge")
	}
	if _, ok := store.sessions[expired.ID]; ok {
		t.Error("expired session must be deleted")
	}
}

func TestSessionProfile(t *testing.T) {
	sess := &Session{ID: "sess-1", Token: "tok", User: domain.User{ID: "u1", Name: "Cached"}}

	t.Run("serves the live profile", func(t *testing.T) {
		api := &mockIdentityAPI{
			ProfileFunc: func(ctx context.Context, token string) (*domain.User, error) {
				return &domain.User{ID: "u1", Name: "Fresh"}, nil
			},
		}
		svc := NewSessionService(api, newMemorySessionStore(), time.Hour, time.Hour, testLogger())

		user, err := svc.Profile(context.Background(), sess)
		if err != nil {
			t.Fatalf("Profile: %v", err)
		}
		if user.Name != "Fresh" {
			t.Errorf("expected fresh profile, got %+v", user)
		}
	})

	t.Run("falls back to the cached copy when upstream is down", func(t *testing.T) {
		api := &mockIdentityAPI{
			ProfileFunc: func(ctx context.Context, token string) (*domain.User, error) {
				return nil, domain.Unavailable(errors.New("connection refused"), "upstream.profile")
			},
		}
		svc := NewSessionService(api, newMemorySessionStore(), time.Hour, time.Hour, testLogger())

		user, err := svc.Profile(context.Background(), sess)
		if err != nil {
			t.Fatalf("Profile: %v", err)
		}
		if user.Name != "Cached" {
			t.Errorf("expected cached profile, got %+v", user)
		}
	})

	t.Run("revoked token surfaces unauthorized", func(t *testing.T) {
		svc := NewSessionService(&mockIdentityAPI{}, newMemorySessionStore(), time.Hour, time.Hour, testLogger())
		_, err := svc.Profile(context.Background(), sess)
		if !domain.IsCode(err, domain.EUNAUTHORIZED) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestTokenExpiry(t *testing.T) {
	t.Run("opaque tokens have no expiry", func(t *testing.T) {
		if got := tokenExpiry("not-a-jwt"); !got.IsZero() {
			t.Errorf("expected zero time, got %v", got)
		}
	})

	t.Run("reads exp without verifying", func(t *testing.T) {
		exp := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		got := tokenExpiry(signedToken(t, exp))
		if !got.Equal(exp) {
			t.Errorf("expected %v, got %v", exp, got)
		}
	})
}
