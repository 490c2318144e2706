package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// DefaultLimit is the page size used when the caller does not supply one.
const DefaultLimit = 25

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

// ListOptions selects one page of a listing. When LastID is set the query
// is keyset-based (stable under concurrent inserts); otherwise Offset is
// interpreted as a page index over Limit-sized pages.
type ListOptions struct {
	Limit  int
	Offset int
	LastID *int64
}

// Normalize clamps the options into valid ranges.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// GetItemByUID retrieves a non-deleted item by its external identifier.
func (c *Conn) GetItemByUID(uid string) (*models.Item, error) {
	var item models.Item
	err := c.db.Where("uid = ? AND deleted_at IS NULL", uid).First(&item).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrItemNotFound)
	}
	return &item, nil
}

// GetItemByID retrieves a non-deleted item by its internal identifier.
func (c *Conn) GetItemByID(id int64) (*models.Item, error) {
	var item models.Item
	err := c.db.Where("id = ? AND deleted_at IS NULL", id).First(&item).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrItemNotFound)
	}
	return &item, nil
}

// LoadItemTags returns the tag map attached to an item.
func (c *Conn) LoadItemTags(itemID int64) (models.TagMap, error) {
	var rows []models.ItemTag
	if err := c.db.Where("item_id = ?", itemID).Find(&rows).Error; err != nil {
		return nil, err
	}

	tags := make(models.TagMap, len(rows))
	for _, row := range rows {
		tags[row.Tag] = row.Value
	}
	return tags, nil
}

// NameCheck looks for a non-deleted sibling with the given basename.
// Returns the existing item's id and true when found. This is the early,
// friendlier error path; the UNIQUE(parent_id, basename) index is the
// actual race safety net.
func (c *Conn) NameCheck(parentID int64, basename string) (int64, bool, error) {
	var item models.Item
	err := c.db.Select("id").
		Where("parent_id = ? AND basename = ? AND deleted_at IS NULL", parentID, basename).
		First(&item).Error
	if err != nil {
		if convertNotFoundError(err, nil) == nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	return item.ID, true, nil
}

// CreateItem inserts a new item row. A unique constraint violation on
// (parent_id, basename) surfaces as ErrAlreadyExists.
func (c *Conn) CreateItem(item *models.Item) error {
	if err := c.db.Create(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateFileContent stages the size/hash/updated columns for a file after
// its bytes were rewritten. The caller owns the surrounding transaction.
func (c *Conn) UpdateFileContent(item *models.Item) error {
	return c.db.Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"size":       item.Size,
			"hash":       item.Hash,
			"updated_at": item.UpdatedAt,
		}).Error
}

// UpdateItemComment updates the comment and updated columns. A nil comment
// clears the column.
func (c *Conn) UpdateItemComment(id int64, comment *string, updated time.Time) error {
	return c.db.Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"comment":    comment,
			"updated_at": updated,
		}).Error
}

// TouchItem updates only the updated timestamp.
func (c *Conn) TouchItem(id int64, updated time.Time) error {
	return c.db.Model(&models.Item{}).
		Where("id = ?", id).
		Update("updated_at", updated).Error
}

// DeleteItemByID hard-deletes a single item row and its tags.
func (c *Conn) DeleteItemByID(id int64) error {
	if err := c.db.Where("item_id = ?", id).Delete(&models.ItemTag{}).Error; err != nil {
		return err
	}
	return c.db.Where("id = ?", id).Delete(&models.Item{}).Error
}

// DeleteItemsByIDs hard-deletes the given item rows and their tags in one
// statement each. Used by recursive subtree deletion for the ids whose
// physical removal was confirmed.
func (c *Conn) DeleteItemsByIDs(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.db.Where("item_id IN ?", ids).Delete(&models.ItemTag{}).Error; err != nil {
		return 0, err
	}
	result := c.db.Where("id IN ?", ids).Delete(&models.Item{})
	return result.RowsAffected, result.Error
}

// Descendants returns every descendant of the given item (the item itself
// included) annotated with depth, ordered deepest-first so children sort
// before their parents. This ordering is what lets subtree deletion remove
// a directory only after everything beneath it is gone.
func (c *Conn) Descendants(rootID int64) ([]models.DeleteNode, error) {
	var nodes []models.DeleteNode
	err := c.db.Raw(`
		WITH RECURSIVE dir_tree AS (
			SELECT id, parent_id, type, backend, 1 AS level
			FROM fs_items
			WHERE id = ?
			UNION ALL
			SELECT children.id, children.parent_id, children.type, children.backend, dir_tree.level + 1
			FROM fs_items children
			INNER JOIN dir_tree ON dir_tree.id = children.parent_id
		)
		SELECT id, parent_id, type, backend, level
		FROM dir_tree
		ORDER BY level DESC, parent_id, type, id`, rootID).
		Scan(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListChildren returns one page of a container's direct children ordered
// by id.
func (c *Conn) ListChildren(parentID int64, opts ListOptions) ([]models.Item, error) {
	opts.Normalize()

	q := c.db.Where("parent_id = ? AND deleted_at IS NULL", parentID).
		Order("id").
		Limit(opts.Limit)

	if opts.LastID != nil {
		q = q.Where("id > ?", *opts.LastID)
	} else {
		q = q.Offset(opts.Offset * opts.Limit)
	}

	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListRoots returns one page of the user's root items ordered by id.
func (c *Conn) ListRoots(userID string, opts ListOptions) ([]models.Item, error) {
	opts.Normalize()

	q := c.db.Where("user_id = ? AND type = ? AND deleted_at IS NULL", userID, models.TypeRoot).
		Order("id").
		Limit(opts.Limit)

	if opts.LastID != nil {
		q = q.Where("id > ?", *opts.LastID)
	} else {
		q = q.Offset(opts.Offset * opts.Limit)
	}

	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SoftDeleteMediumItems marks every item of a medium deleted. Called from
// the medium soft-delete cascade.
func (c *Conn) SoftDeleteMediumItems(mediumID string, when time.Time) error {
	return c.db.Model(&models.Item{}).
		Where("medium_id = ? AND deleted_at IS NULL", mediumID).
		Update("deleted_at", when).Error
}

// lockItemRow takes a row lock on the item for the duration of the
// transaction. SQLite serializes writers anyway; on PostgreSQL this closes
// the concurrent-replace window on the same file id.
func lockItemRow(db *gorm.DB, id int64) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec("SELECT id FROM fs_items WHERE id = ? FOR UPDATE", id).Error
}

// LockItem locks the item row within the current transaction.
func (t *Tx) LockItem(id int64) error {
	return lockItemRow(t.db, id)
}
