package middleware

import (
	"context"
	"net/http"

	"github.com/nattapol/talad/internal/cookie"
	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/service"
)

const (
	// SessionContextKey is the context key for the resolved session
	SessionContextKey contextKey = "session"
)

// WithSession resolves the session cookie into a session and stores it in the
// request context. Requests without a valid session pass through anonymous;
// a stale cookie is cleared so the browser stops sending it.
func WithSession(sessions service.SessionService, cookies *cookie.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookies.Read(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Get(r.Context(), id)
			if err != nil {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that did not resolve to a session.
// Place it after WithSession in the chain.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			respondWithError(w, r, domain.Unauthorized("middleware.session", "Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession retrieves the session from the context, or nil when anonymous.
func GetSession(ctx context.Context) *service.Session {
	if sess, ok := ctx.Value(SessionContextKey).(*service.Session); ok {
		return sess
	}
	return nil
}
