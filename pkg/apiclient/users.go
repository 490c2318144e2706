package apiclient

import (
	"context"
	"net/url"
)

// ListUsers returns all users. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/api/v1/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUserRequest is the request for CreateUser.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// CreateUser creates a new user. Admin only.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var user User
	if err := c.post(ctx, "/api/v1/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword sets a user's password. Users may change their own;
// admins anyone's.
func (c *Client) ChangePassword(ctx context.Context, userID, password string) error {
	req := struct {
		Password string `json:"password"`
	}{
		Password: password,
	}
	return c.put(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/password", req, nil)
}

// DeleteUser removes a user. Admin only; self-deletion is rejected.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.delete(ctx, "/api/v1/users/"+url.PathEscape(userID), nil)
}
