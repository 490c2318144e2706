package service

import (
	"context"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// GetItem retrieves an item with its tags.
func (s *Service) GetItem(ctx context.Context, userID, uid string) (*models.Item, error) {
	conn := s.store.Conn(ctx)
	item, err := getOwnedItem(conn, userID, uid)
	if err != nil {
		return nil, err
	}

	tags, err := conn.LoadItemTags(item.ID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

// CreateDirectoryRequest carries one directory creation.
type CreateDirectoryRequest struct {
	ParentUID string
	Basename  string
	Comment   *string
	Tags      models.TagMap
}

// CreateDirectory creates a directory under an existing container. The
// physical mkdir happens before any metadata write: a disk failure aborts
// cleanly, while a metadata failure after mkdir leaves an orphan directory
// on disk that external reconciliation has to pick up.
func (s *Service) CreateDirectory(ctx context.Context, userID string, req CreateDirectoryRequest) (*models.Item, error) {
	if !models.BasenameValid(req.Basename) {
		return nil, models.NewValidationError("basename")
	}
	if req.Comment != nil && !models.CommentValid(*req.Comment) {
		return nil, models.NewValidationError("comment")
	}
	if err := models.ValidateTagMap(req.Tags); err != nil {
		return nil, err
	}

	conn := s.store.Conn(ctx)
	parent, err := getOwnedItem(conn, userID, req.ParentUID)
	if err != nil {
		return nil, err
	}
	if !parent.IsContainer() {
		return nil, models.ErrInvalidType
	}

	medium, err := conn.GetMediumByID(parent.MediumID)
	if err != nil {
		return nil, err
	}
	pair, err := backend.MatchUp(medium.Backend, parent.Backend)
	if err != nil {
		return nil, err
	}

	if _, taken, err := conn.NameCheck(parent.ID, req.Basename); err != nil {
		return nil, err
	} else if taken {
		return nil, models.ErrAlreadyExists
	}

	dirAbs := filepath.Join(pair.Local.FullPath(), req.Basename)
	relPath := path.Join(pair.Local.Node.Path, req.Basename)

	if err := s.disk.Mkdir(dirAbs); err != nil {
		if isExist(err) {
			return nil, models.ErrAlreadyExists
		}
		return nil, err
	}

	item := &models.Item{
		UID:       uuid.New().String(),
		UserID:    parent.UserID,
		MediumID:  medium.ID,
		ParentID:  &parent.ID,
		Basename:  req.Basename,
		Type:      models.TypeDirectory,
		Path:      parent.ChildPath(),
		Backend:   backend.NewLocalNode(relPath),
		Comment:   req.Comment,
		CreatedAt: now(),
		Tags:      req.Tags,
	}
	if item.Tags == nil {
		item.Tags = models.TagMap{}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.CreateItem(item); err != nil {
		// Accepted orphan risk: the directory stays on disk without a row.
		logger.Warn("directory row insert failed after mkdir",
			"path", dirAbs, "error", err)
		return nil, err
	}
	if len(req.Tags) > 0 {
		if err := tx.ReplaceItemTags(item.ID, req.Tags); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Warn("directory commit failed after mkdir",
			"path", dirAbs, "error", err)
		return nil, err
	}

	logger.Info("directory created", "uid", item.UID, "basename", item.Basename)
	return item, nil
}
