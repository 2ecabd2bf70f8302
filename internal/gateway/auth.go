package gateway

import (
	"context"
	"net/http"
)

// SessionHeader carries the one-time federated session id.
const SessionHeader = "X-Session-ID"

// Me returns the user bound to the current credential.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, Credentials{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	var out AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, Credentials{Email: email, Password: password, Name: name}, &out)
	return out, err
}

// ExchangeSession trades a one-time federated session id for a session.
// The id travels in a header and the body is empty.
func (c *Client) ExchangeSession(ctx context.Context, sessionID string) (AuthResult, error) {
	var out AuthResult
	header := http.Header{}
	header.Set(SessionHeader, sessionID)
	err := c.doJSON(ctx, http.MethodPost, "/auth/session-data", header, nil, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	var out successResponse
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, &out)
}
