package apiclient

import (
	"context"
	"errors"
	"fmt"

	"companyops/internal/core"
)

// ErrMissingToken means login answered 2xx without a token.
var ErrMissingToken = errors.New("login response has no token")

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

type LoginResult struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

// Login exchanges credentials for a token. The returned user's role is
// checked against the known roles.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var res LoginResult
	if err := c.Post(ctx, "", "/auth/login", creds, &res); err != nil {
		return LoginResult{}, err
	}
	if res.Token == "" {
		return LoginResult{}, ErrMissingToken
	}
	role, err := core.ParseRole(string(res.User.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("login user %s: %w", res.User.Email, err)
	}
	res.User.Role = role
	return res, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.Post(ctx, "", "/auth/register", reg, nil)
}
