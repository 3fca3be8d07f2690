package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (session.User, error) {
	var resp loginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", loginRequest{email, password}, &resp); err != nil {
		return session.User{}, err
	}
	if resp.Token == "" {
		return session.User{}, fmt.Errorf("login: empty token in response")
	}
	if err := c.Session.Set(resp.Token, resp.User); err != nil {
		return session.User{}, fmt.Errorf("saving session: %w", err)
	}
	return resp.User, nil
}

// Logout revokes the token on a best-effort basis and always clears the
// session.
func (c *Client) Logout(ctx context.Context) error {
	var callErr error
	if c.Session.Authenticated() {
		callErr = c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
	}
	if err := c.Session.Clear(); err != nil {
		return err
	}
	return callErr
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context) (session.User, error) {
	var u session.User
	err := c.call(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.call(ctx, http.MethodPut, "/auth/password", body, nil)
}

// NewUser is the body of a registration.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates an account. Requires the admin role.
func (c *Client) Register(ctx context.Context, u NewUser) (model.User, error) {
	var out model.User
	err := c.call(ctx, http.MethodPost, "/auth/register", u, &out)
	return out, err
}
