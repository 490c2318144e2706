package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TagMap is a set of tags attached to an item or medium. A nil value
// means the tag has no value.
type TagMap map[string]*string

// Item represents a filesystem item.
type Item struct {
	ID       int64      `json:"id"`
	UID      string     `json:"uid"`
	UserID   string     `json:"user_id"`
	MediumID string     `json:"medium_id"`
	ParentID *int64     `json:"parent_id,omitempty"`
	Basename string     `json:"basename"`
	Type     string     `json:"type"`
	Path     string     `json:"path"`
	Size     int64      `json:"size,omitempty"`
	Mime     string     `json:"mime,omitempty"`
	Hash     string     `json:"hash,omitempty"`
	Comment  *string    `json:"comment,omitempty"`
	Created  time.Time  `json:"created_at"`
	Updated  *time.Time `json:"updated_at,omitempty"`
	Tags     TagMap     `json:"tags,omitempty"`
}

// ItemMin is the reduced item projection used in listings.
type ItemMin struct {
	ID       int64      `json:"id"`
	UID      string     `json:"uid"`
	UserID   string     `json:"user_id"`
	MediumID string     `json:"medium_id"`
	ParentID *int64     `json:"parent_id,omitempty"`
	Basename string     `json:"basename"`
	Type     string     `json:"type"`
	Path     string     `json:"path,omitempty"`
	Size     int64      `json:"size,omitempty"`
	Mime     string     `json:"mime,omitempty"`
	Created  time.Time  `json:"created_at"`
	Updated  *time.Time `json:"updated_at,omitempty"`
}

// Page is one page of a listing plus the descriptor for fetching the
// next one.
type Page struct {
	Items  []ItemMin `json:"items"`
	Limit  int       `json:"limit"`
	Offset *int      `json:"offset,omitempty"`
	LastID *int64    `json:"last_id,omitempty"`
}

// DeleteResult summarizes a recursive delete.
type DeleteResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ListOptions controls pagination of listing calls. LastID selects
// keyset mode and wins over Offset.
type ListOptions struct {
	Limit  int
	Offset int
	LastID *int64
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", o.Limit))
	}
	if o.LastID != nil {
		q.Set("last_id", fmt.Sprintf("%d", *o.LastID))
	} else if o.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", o.Offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListRoots returns one page of the caller's root items.
func (c *Client) ListRoots(ctx context.Context, opts ListOptions) (*Page, error) {
	var page Page
	if err := c.get(ctx, "/api/v1/fs"+opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetItem returns the item addressed by uid, including its tags.
func (c *Client) GetItem(ctx context.Context, uid string) (*Item, error) {
	var item Item
	if err := c.get(ctx, "/api/v1/fs/"+url.PathEscape(uid), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateDirectoryRequest is the request for CreateDirectory.
type CreateDirectoryRequest struct {
	Basename string  `json:"basename"`
	Comment  *string `json:"comment,omitempty"`
	Tags     TagMap  `json:"tags,omitempty"`
}

// CreateDirectory creates a directory under the addressed container.
func (c *Client) CreateDirectory(ctx context.Context, parentUID string, req CreateDirectoryRequest) (*Item, error) {
	var item Item
	if err := c.post(ctx, "/api/v1/fs/"+url.PathEscape(parentUID), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UploadOptions carries the optional parts of an upload.
type UploadOptions struct {
	// Mime is the content type stored with the file. Required when
	// creating; must match the stored type when replacing.
	Mime string

	// ExpectedHash, when set, requests server-side integrity
	// verification. Format: "blake3:<64 hex chars>".
	ExpectedHash string
}

// Upload streams content to the addressed item. Uploading to a
// container creates a file called basename inside it; uploading to a
// file replaces its content (basename is ignored).
func (c *Client) Upload(ctx context.Context, targetUID, basename string, content io.Reader, opts UploadOptions) (*Item, error) {
	path := "/api/v1/fs/" + url.PathEscape(targetUID)
	if basename != "" {
		path += "?basename=" + url.QueryEscape(basename)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts.Mime != "" {
		req.Header.Set("Content-Type", opts.Mime)
	}
	if opts.ExpectedHash != "" {
		req.Header.Set("x-hash", opts.ExpectedHash)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var item Item
	if err := decodeJSON(body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateMetadataRequest is the request for UpdateMetadata. At least one
// field must be set; an empty comment clears it; a present tags map
// replaces the full tag set.
type UpdateMetadataRequest struct {
	Comment *string `json:"comment,omitempty"`
	Tags    TagMap  `json:"tags,omitempty"`
}

// UpdateMetadata updates an item's comment and tags.
func (c *Client) UpdateMetadata(ctx context.Context, uid string, req UpdateMetadataRequest) (*Item, error) {
	var item Item
	if err := c.patch(ctx, "/api/v1/fs/"+url.PathEscape(uid), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem deletes a file or, recursively and best-effort, a
// directory subtree.
func (c *Client) DeleteItem(ctx context.Context, uid string) (*DeleteResult, error) {
	var result DeleteResult
	if err := c.delete(ctx, "/api/v1/fs/"+url.PathEscape(uid), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListContents returns one page of a container's direct children.
func (c *Client) ListContents(ctx context.Context, uid string, opts ListOptions) (*Page, error) {
	var page Page
	if err := c.get(ctx, "/api/v1/fs/"+url.PathEscape(uid)+"/contents"+opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Download holds a downloaded file's stream and response metadata.
type Download struct {
	// Content is the file's byte stream. The caller must close it.
	Content io.ReadCloser

	// Hash is the server-reported content hash ("blake3:<hex>").
	Hash string

	// Mime is the content type.
	Mime string

	// Size is the content length, or -1 when unknown.
	Size int64
}

// DownloadFile streams a file's content from the server.
func (c *Client) DownloadFile(ctx context.Context, uid string) (*Download, error) {
	path := "/api/v1/fs/" + url.PathEscape(uid) + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	return &Download{
		Content: resp.Body,
		Hash:    resp.Header.Get("x-hash"),
		Mime:    resp.Header.Get("Content-Type"),
		Size:    resp.ContentLength,
	}, nil
}
