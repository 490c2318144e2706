package store

import (
	"time"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// GetMediumByID retrieves a non-deleted medium by id.
func (c *Conn) GetMediumByID(id string) (*models.Medium, error) {
	var medium models.Medium
	err := c.db.Where("id = ? AND deleted_at IS NULL", id).First(&medium).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrMediumNotFound)
	}
	return &medium, nil
}

// MediumNameTaken reports whether the user already owns a non-deleted
// medium with the given name.
func (c *Conn) MediumNameTaken(userID, name string) (bool, error) {
	var medium models.Medium
	err := c.db.Select("id").
		Where("user_id = ? AND name = ? AND deleted_at IS NULL", userID, name).
		First(&medium).Error
	if err != nil {
		if convertNotFoundError(err, nil) == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateMedium inserts a new medium row. A unique violation on
// (user_id, name) surfaces as ErrDuplicateMedium.
func (c *Conn) CreateMedium(medium *models.Medium) error {
	if err := c.db.Create(medium).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateMedium
		}
		return err
	}
	return nil
}

// UpdateMediumName renames a medium and stamps updated_at.
func (c *Conn) UpdateMediumName(id, name string, updated time.Time) error {
	err := c.db.Model(&models.Medium{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":       name,
			"updated_at": updated,
		}).Error
	if err != nil && isUniqueConstraintError(err) {
		return models.ErrDuplicateMedium
	}
	return err
}

// SoftDeleteMedium marks the medium deleted. The item cascade is a
// separate statement; run both inside one transaction.
func (c *Conn) SoftDeleteMedium(id string, when time.Time) error {
	return c.db.Model(&models.Medium{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", when).Error
}

// ListMediums returns one page of the user's non-deleted mediums ordered
// by creation time.
func (c *Conn) ListMediums(userID string, opts ListOptions) ([]models.Medium, error) {
	opts.Normalize()

	var mediums []models.Medium
	err := c.db.Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("created_at, id").
		Limit(opts.Limit).
		Offset(opts.Offset * opts.Limit).
		Find(&mediums).Error
	if err != nil {
		return nil, err
	}
	return mediums, nil
}

// GetMediumForItemUID resolves the medium that backs the given item in a
// single join. Every file operation needs the pair of the item's node and
// its medium's config, so this avoids a second round trip.
func (c *Conn) GetMediumForItemUID(itemUID string) (*models.Medium, error) {
	var medium models.Medium
	err := c.db.
		Joins("INNER JOIN fs_items ON fs_items.medium_id = mediums.id").
		Where("fs_items.uid = ? AND fs_items.deleted_at IS NULL AND mediums.deleted_at IS NULL", itemUID).
		First(&medium).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrMediumNotFound)
	}
	return &medium, nil
}

// GetRootItem returns the root item of a medium.
func (c *Conn) GetRootItem(mediumID string) (*models.Item, error) {
	var item models.Item
	err := c.db.
		Where("medium_id = ? AND type = ? AND deleted_at IS NULL", mediumID, models.TypeRoot).
		First(&item).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrItemNotFound)
	}
	return &item, nil
}
