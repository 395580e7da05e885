package api

import (
	"context"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and returns the user's allowed pages.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	return out, nil
}
