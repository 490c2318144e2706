package store

import "github.com/shelf-fs/shelf/pkg/fs/models"

// ReplaceItemTags swaps the full tag set of an item. Tag updates are
// whole-map replacements, never merges.
func (c *Conn) ReplaceItemTags(itemID int64, tags models.TagMap) error {
	if err := c.db.Where("item_id = ?", itemID).Delete(&models.ItemTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	rows := make([]models.ItemTag, 0, len(tags))
	for tag, value := range tags {
		rows = append(rows, models.ItemTag{ItemID: itemID, Tag: tag, Value: value})
	}
	return c.db.Create(&rows).Error
}

// ReplaceMediumTags swaps the full tag set of a medium.
func (c *Conn) ReplaceMediumTags(mediumID string, tags models.TagMap) error {
	if err := c.db.Where("medium_id = ?", mediumID).Delete(&models.MediumTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	rows := make([]models.MediumTag, 0, len(tags))
	for tag, value := range tags {
		rows = append(rows, models.MediumTag{MediumID: mediumID, Tag: tag, Value: value})
	}
	return c.db.Create(&rows).Error
}

// LoadMediumTags returns the tag map attached to a medium.
func (c *Conn) LoadMediumTags(mediumID string) (models.TagMap, error) {
	var rows []models.MediumTag
	if err := c.db.Where("medium_id = ?", mediumID).Find(&rows).Error; err != nil {
		return nil, err
	}

	tags := make(models.TagMap, len(rows))
	for _, row := range rows {
		tags[row.Tag] = row.Value
	}
	return tags, nil
}
