package models

import (
	"time"

	"github.com/shelf-fs/shelf/pkg/fs/backend"
)

// Medium represents one configured storage backend instance owned by a
// user, e.g. a local directory tree. Its name is unique among the
// non-deleted mediums of that user. Deleting a medium is always a soft
// delete and cascades a soft delete to every item under it.
type Medium struct {
	ID      string         `gorm:"primaryKey;size:36" json:"id"`
	UserID  string         `gorm:"uniqueIndex:idx_mediums_user_name;not null;size:36" json:"user_id"`
	Name    string         `gorm:"uniqueIndex:idx_mediums_user_name;not null;size:128" json:"name"`
	Backend backend.Config `gorm:"type:text" json:"backend"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`

	// Tags are loaded separately by the store.
	Tags TagMap `gorm:"-" json:"tags,omitempty"`
}

// TableName returns the table name for Medium.
func (Medium) TableName() string {
	return "mediums"
}

// MediumMin is the min-projected listing representation of a medium.
type MediumMin struct {
	ID      string         `json:"id"`
	UserID  string         `json:"user_id"`
	Name    string         `json:"name"`
	Backend backend.Config `json:"backend"`
}

// Min projects the medium for listing responses.
func (m *Medium) Min() MediumMin {
	return MediumMin{
		ID:      m.ID,
		UserID:  m.UserID,
		Name:    m.Name,
		Backend: m.Backend,
	}
}
