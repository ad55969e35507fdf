// Package cookie manages the session cookie. The browser only ever holds the
// opaque session ID; the upstream bearer token never leaves the server.
package cookie

import (
	"net/http"
	"time"
)

// Manager writes and clears the session cookie with consistent attributes.
type Manager struct {
	name   string
	secure bool
}

// NewManager creates a cookie manager. secure should be true everywhere except
// local development.
func NewManager(name string, secure bool) *Manager {
	return &Manager{name: name, secure: secure}
}

// Name returns the configured cookie name.
func (m *Manager) Name() string {
	return m.name
}

// Write sets the session cookie. With remember set the cookie persists for ttl;
// otherwise it is a session cookie that dies with the browser.
func (m *Manager) Write(w http.ResponseWriter, sessionID string, remember bool, ttl time.Duration) {
	c := &http.Cookie{
		Name:     m.name,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

// Clear expires the session cookie immediately.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session ID from the request, or "" when absent.
func (m *Manager) Read(r *http.Request) string {
	c, err := r.Cookie(m.name)
	if err != nil {
		return ""
	}
	return c.Value
}
