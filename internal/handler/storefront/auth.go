package storefront

import (
	"net/http"
	"strings"
	"time"

	"github.com/nattapol/talad/internal/cookie"
	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/middleware"
	"github.com/nattapol/talad/internal/service"
)

// AuthHandler serves login, logout and profile.
type AuthHandler struct {
	sessions service.SessionService
	checkout service.CheckoutService
	cookies  *cookie.Manager
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(sessions service.SessionService, checkout service.CheckoutService, cookies *cookie.Manager) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		checkout: checkout,
		cookies:  cookies,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse(u)
}

// Login verifies credentials upstream, creates the session and sets the
// cookie. With remember set the cookie persists; otherwise it dies with the
// browser tab.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, r, domain.Invalid("auth.login", "Email and password are required"))
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.Write(w, sess.ID, sess.Remember, time.Until(sess.ExpiresAt))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(sess.User),
	})
}

// Logout deletes the session, discards its checkout state and clears the
// cookie. Safe to call without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.GetSession(r.Context()); sess != nil {
		if err := h.sessions.Logout(r.Context(), sess.ID); err != nil {
			writeError(w, r, err)
			return
		}
		h.checkout.Reset(sess.ID)
	}
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Profile returns the authenticated user, refreshed from the identity
// provider when it is reachable.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	user, err := h.sessions.Profile(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(*user),
	})
}
