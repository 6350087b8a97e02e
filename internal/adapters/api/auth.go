package api

import (
	"context"
	"net/http"
)

// RemoteUser is the account the API reports after login.
type RemoteUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ShopName string `json:"shopName"`
	Role     string `json:"role"`
}

// LoginResult carries the bearer credential issued by the API.
type LoginResult struct {
	Token string     `json:"token"`
	User  RemoteUser `json:"user"`
}

// RegisterRequest is the account registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	ShopName string `json:"shopName"`
	Phone    string `json:"phone,omitempty"`
}

// Login exchanges email and password for a bearer credential.
// POST: result.Token is non-empty on success
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	if err := c.do(ctx, request{method: http.MethodPost, route: "/auth/login", path: "/auth/login", body: body, public: true}, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, &Error{Status: http.StatusBadGateway, Message: "login response carried no token"}
	}
	return out, nil
}

// Register creates a remote account.
func (c *Client) Register(ctx context.Context, in RegisterRequest) error {
	body, err := jsonBody(in)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, route: "/auth/register", path: "/auth/register", body: body, public: true}, nil)
}
