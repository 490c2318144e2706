package service

import (
	"context"

	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// Page is one page of min-projected items plus the pagination descriptor
// the caller needs to fetch the next one. LastID is set in keyset mode and
// carries the cursor for the next call; Offset echoes the page index in
// offset mode.
type Page struct {
	Items  []models.ItemMin `json:"items"`
	Limit  int              `json:"limit"`
	Offset *int             `json:"offset,omitempty"`
	LastID *int64           `json:"last_id,omitempty"`
}

func buildPage(items []models.Item, opts store.ListOptions) *Page {
	opts.Normalize()

	page := &Page{
		Items: make([]models.ItemMin, 0, len(items)),
		Limit: opts.Limit,
	}
	for i := range items {
		page.Items = append(page.Items, items[i].Min())
	}

	if opts.LastID != nil {
		if len(items) > 0 {
			last := items[len(items)-1].ID
			page.LastID = &last
		} else {
			page.LastID = opts.LastID
		}
	} else {
		offset := opts.Offset
		page.Offset = &offset
	}
	return page
}

// ListRoots returns one page of the caller's root items.
func (s *Service) ListRoots(ctx context.Context, userID string, opts store.ListOptions) (*Page, error) {
	items, err := s.store.Conn(ctx).ListRoots(userID, opts)
	if err != nil {
		return nil, err
	}
	return buildPage(items, opts), nil
}

// ListContents returns one page of a container's direct children.
func (s *Service) ListContents(ctx context.Context, userID, containerUID string, opts store.ListOptions) (*Page, error) {
	conn := s.store.Conn(ctx)
	container, err := getOwnedItem(conn, userID, containerUID)
	if err != nil {
		return nil, err
	}
	if !container.IsContainer() {
		return nil, models.ErrInvalidType
	}

	items, err := conn.ListChildren(container.ID, opts)
	if err != nil {
		return nil, err
	}
	return buildPage(items, opts), nil
}
