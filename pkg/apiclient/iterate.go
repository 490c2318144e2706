package apiclient

import "context"

// Iterator walks a paginated listing with keyset cursors, fetching one
// page per Next call until the server returns a short page.
type Iterator struct {
	fetch  func(ctx context.Context, opts ListOptions) (*Page, error)
	limit  int
	lastID *int64
	done   bool
}

// IterateRoots returns an iterator over the caller's root items. A
// limit of zero uses the server default page size.
func (c *Client) IterateRoots(limit int) *Iterator {
	return &Iterator{fetch: c.ListRoots, limit: limit}
}

// IterateContents returns an iterator over a container's direct
// children.
func (c *Client) IterateContents(uid string, limit int) *Iterator {
	return &Iterator{
		fetch: func(ctx context.Context, opts ListOptions) (*Page, error) {
			return c.ListContents(ctx, uid, opts)
		},
		limit: limit,
	}
}

// Next fetches the next page. It returns nil items once the listing is
// exhausted.
func (it *Iterator) Next(ctx context.Context) ([]ItemMin, error) {
	if it.done {
		return nil, nil
	}

	// The first call sends no cursor; the server starts keyset paging
	// from the beginning on last_id=0.
	cursor := it.lastID
	if cursor == nil {
		var zero int64
		cursor = &zero
	}

	page, err := it.fetch(ctx, ListOptions{Limit: it.limit, LastID: cursor})
	if err != nil {
		return nil, err
	}

	it.lastID = page.LastID
	if len(page.Items) < page.Limit {
		it.done = true
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return page.Items, nil
}

// All drains the iterator and returns every remaining item.
func (it *Iterator) All(ctx context.Context) ([]ItemMin, error) {
	var items []ItemMin
	for {
		page, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return items, nil
		}
		items = append(items, page...)
	}
}
