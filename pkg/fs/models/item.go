package models

import (
	"path"
	"time"

	"github.com/shelf-fs/shelf/pkg/fs/backend"
)

// ItemType discriminates the filesystem item union.
type ItemType string

const (
	// TypeRoot is the container created alongside its storage medium.
	// It has no parent and cannot be deleted through the fs API.
	TypeRoot ItemType = "root"
	// TypeDirectory is an intermediate container.
	TypeDirectory ItemType = "directory"
	// TypeFile is a leaf carrying content size, mime and hash.
	TypeFile ItemType = "file"
)

// IsValid checks if the type is a known ItemType.
func (t ItemType) IsValid() bool {
	return t == TypeRoot || t == TypeDirectory || t == TypeFile
}

// Item is one node of the filesystem tree: a Root, Directory or File row.
//
// Items have a dual identity: ID is the internal sequential key used for
// joins and keyset pagination, UID is the stable external identifier used
// in URLs. Path holds the path of the item's ancestors within the medium
// and does not include the item's own basename.
//
// The UNIQUE(parent_id, basename) index is the real safety net behind the
// application-level name check; the check is only an early, friendlier
// error path.
type Item struct {
	ID       int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UID      string  `gorm:"uniqueIndex;not null;size:36" json:"uid"`
	UserID   string  `gorm:"index;not null;size:36" json:"user_id"`
	MediumID string  `gorm:"index;not null;size:36" json:"medium_id"`
	ParentID *int64  `gorm:"uniqueIndex:idx_items_parent_basename" json:"parent_id,omitempty"`
	Basename string  `gorm:"uniqueIndex:idx_items_parent_basename;not null;size:512" json:"basename"`
	Type     ItemType `gorm:"not null;size:16" json:"type"`
	Path     string  `gorm:"size:2048" json:"path"`

	// File-only columns; zero-valued for containers.
	Size int64  `json:"size,omitempty"`
	Mime string `gorm:"size:255" json:"mime,omitempty"`
	Hash string `gorm:"size:64" json:"hash,omitempty"` // hex blake3

	Backend backend.Node `gorm:"type:text" json:"backend"`
	Comment *string      `gorm:"size:1024" json:"comment,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`

	// Tags are loaded separately by the store; not a GORM association so
	// bulk item queries stay cheap.
	Tags TagMap `gorm:"-" json:"tags,omitempty"`
}

// TableName returns the table name for Item.
func (Item) TableName() string {
	return "fs_items"
}

// IsContainer reports whether the item may hold children.
func (i *Item) IsContainer() bool {
	return i.Type == TypeRoot || i.Type == TypeDirectory
}

// FullPath returns the item's path within its medium, including its own
// basename. Roots resolve to the medium root ("").
func (i *Item) FullPath() string {
	if i.Type == TypeRoot {
		return ""
	}
	return path.Join(i.Path, i.Basename)
}

// ChildPath returns the path column value for a direct child of this item.
func (i *Item) ChildPath() string {
	return i.FullPath()
}

// ItemMin is the min-projected listing representation returned by the
// pagination endpoints to bound payload size.
type ItemMin struct {
	ID       int64      `json:"id"`
	UID      string     `json:"uid"`
	UserID   string     `json:"user_id"`
	MediumID string     `json:"medium_id"`
	ParentID *int64     `json:"parent_id,omitempty"`
	Basename string     `json:"basename"`
	Type     ItemType   `json:"type"`
	Path     string     `json:"path,omitempty"`
	Size     int64      `json:"size,omitempty"`
	Mime     string     `json:"mime,omitempty"`
	Created  time.Time  `json:"created_at"`
	Updated  *time.Time `json:"updated_at,omitempty"`
}

// Min projects the item for listing responses.
func (i *Item) Min() ItemMin {
	return ItemMin{
		ID:       i.ID,
		UID:      i.UID,
		UserID:   i.UserID,
		MediumID: i.MediumID,
		ParentID: i.ParentID,
		Basename: i.Basename,
		Type:     i.Type,
		Path:     i.Path,
		Size:     i.Size,
		Mime:     i.Mime,
		Created:  i.CreatedAt,
		Updated:  i.UpdatedAt,
	}
}

// DeleteNode is one row of the recursive descendant query used by subtree
// deletion: just enough to pair the backend and dispatch removal.
type DeleteNode struct {
	ID       int64
	ParentID *int64
	Type     ItemType
	Backend  backend.Node `gorm:"type:text"`
	Level    int
}
