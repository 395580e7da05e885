package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListUsers returns every dashboard account.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser adds an account. The backend rejects a duplicate email.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (User, error) {
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	var out User
	if err := c.sendJSON(ctx, http.MethodPost, "/users/", u, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// UpdateUser applies a partial update and returns the stored account.
func (c *Client) UpdateUser(ctx context.Context, id int, u UserUpdate) (User, error) {
	if u.Password != nil {
		if err := validatePassword(*u.Password); err != nil {
			return User{}, err
		}
	}
	var out User
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), u, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}
