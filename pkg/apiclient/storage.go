package apiclient

import (
	"context"
	"net/url"
	"time"
)

// BackendConfig describes where a medium stores its bytes.
type BackendConfig struct {
	Kind  string              `json:"kind"`
	Local *BackendLocalConfig `json:"local,omitempty"`
}

// BackendLocalConfig is the local-disk backend configuration.
type BackendLocalConfig struct {
	Path string `json:"path"`
}

// Medium represents a storage medium.
type Medium struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id"`
	Name    string        `json:"name"`
	Backend BackendConfig `json:"backend"`
	Created time.Time     `json:"created_at"`
	Updated *time.Time    `json:"updated_at,omitempty"`
	Tags    TagMap        `json:"tags,omitempty"`
}

// MediumMin is the reduced medium projection used in listings.
type MediumMin struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id"`
	Name    string        `json:"name"`
	Backend BackendConfig `json:"backend"`
}

// ListMediums returns the caller's storage mediums.
func (c *Client) ListMediums(ctx context.Context, opts ListOptions) ([]MediumMin, error) {
	var mediums []MediumMin
	if err := c.get(ctx, "/api/v1/fs/storage"+opts.query(), &mediums); err != nil {
		return nil, err
	}
	return mediums, nil
}

// CreateMediumRequest is the request for CreateMedium. Path must name an
// existing absolute directory on the server.
type CreateMediumRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Tags TagMap `json:"tags,omitempty"`
}

// CreateMedium registers a storage medium and provisions its root item.
func (c *Client) CreateMedium(ctx context.Context, req CreateMediumRequest) (*Medium, error) {
	var medium Medium
	if err := c.post(ctx, "/api/v1/fs/storage", req, &medium); err != nil {
		return nil, err
	}
	return &medium, nil
}

// GetMedium returns the medium addressed by id, including its tags.
func (c *Client) GetMedium(ctx context.Context, id string) (*Medium, error) {
	var medium Medium
	if err := c.get(ctx, "/api/v1/fs/storage/"+url.PathEscape(id), &medium); err != nil {
		return nil, err
	}
	return &medium, nil
}

// UpdateMediumRequest is the request for UpdateMedium. At least one
// field must be set.
type UpdateMediumRequest struct {
	Name *string `json:"name,omitempty"`
	Tags TagMap  `json:"tags,omitempty"`
}

// UpdateMedium renames a medium or replaces its tags.
func (c *Client) UpdateMedium(ctx context.Context, id string, req UpdateMediumRequest) (*Medium, error) {
	var medium Medium
	if err := c.put(ctx, "/api/v1/fs/storage/"+url.PathEscape(id), req, &medium); err != nil {
		return nil, err
	}
	return &medium, nil
}

// DeleteMedium soft-deletes a medium and everything under it. Bytes stay
// on disk.
func (c *Client) DeleteMedium(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/v1/fs/storage/"+url.PathEscape(id), nil)
}
