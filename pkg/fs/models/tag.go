package models

// TagMap is the attached key/value metadata shared by items and mediums.
// A nil value means the tag is present without a value.
type TagMap map[string]*string

// ItemTag is one tag row attached to a filesystem item.
type ItemTag struct {
	ItemID int64   `gorm:"primaryKey" json:"item_id"`
	Tag    string  `gorm:"primaryKey;size:128" json:"tag"`
	Value  *string `gorm:"size:512" json:"value,omitempty"`
}

// TableName returns the table name for ItemTag.
func (ItemTag) TableName() string {
	return "item_tags"
}

// MediumTag is one tag row attached to a storage medium.
type MediumTag struct {
	MediumID string  `gorm:"primaryKey;size:36" json:"medium_id"`
	Tag      string  `gorm:"primaryKey;size:128" json:"tag"`
	Value    *string `gorm:"size:512" json:"value,omitempty"`
}

// TableName returns the table name for MediumTag.
func (MediumTag) TableName() string {
	return "medium_tags"
}

// ValidateTagMap checks every key and value against the tag format rules.
// Returns nil when the map is valid.
func ValidateTagMap(tags TagMap) error {
	for key, value := range tags {
		if !TagKeyValid(key) {
			return NewValidationError("tags")
		}
		if value != nil && !TagValueValid(*value) {
			return NewValidationError("tags")
		}
	}
	return nil
}
