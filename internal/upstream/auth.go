package upstream

import (
	"context"
	"net/http"

	"github.com/nattapol/talad/internal/domain"
)

// LoginResult carries the bearer token issued by the identity provider and
// the verified profile.
type LoginResult struct {
	Token string
	User  domain.User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	User  userDTO `json:"user"`
	Token string  `json:"token"`
}

// Login verifies credentials with the identity provider and returns the
// bearer token. Invalid credentials surface as the upstream reason verbatim.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "upstream.login"

	var resp loginResponse
	err := c.doJSON(ctx, op, http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token: resp.Token,
		User:  domain.User(resp.User),
	}, nil
}

type profileResponse struct {
	User userDTO `json:"user"`
}

// Profile fetches the profile for the given bearer token.
func (c *Client) Profile(ctx context.Context, token string) (*domain.User, error) {
	const op = "upstream.profile"

	var resp profileResponse
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/auth/profile", token, nil, &resp); err != nil {
		return nil, err
	}

	user := domain.User(resp.User)
	return &user, nil
}
