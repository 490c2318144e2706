package service

import (
	"context"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// UpdateMetadataRequest carries a comment/tag update. A nil Comment means
// "leave unchanged"; an empty string clears the column. A nil Tags means
// "leave unchanged"; a non-nil map replaces the full tag set.
type UpdateMetadataRequest struct {
	ItemUID string
	Comment *string
	Tags    models.TagMap
}

// UpdateMetadata updates an item's comment and/or tags. Pure metadata, no
// physical I/O. A request changing neither is ErrNoWork.
func (s *Service) UpdateMetadata(ctx context.Context, userID string, req UpdateMetadataRequest) (*models.Item, error) {
	if req.Comment == nil && req.Tags == nil {
		return nil, models.ErrNoWork
	}
	if req.Comment != nil && *req.Comment != "" && !models.CommentValid(*req.Comment) {
		return nil, models.NewValidationError("comment")
	}
	if err := models.ValidateTagMap(req.Tags); err != nil {
		return nil, err
	}

	conn := s.store.Conn(ctx)
	item, err := getOwnedItem(conn, userID, req.ItemUID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated := now()
	if req.Comment != nil {
		comment := req.Comment
		if *comment == "" {
			comment = nil
		}
		if err := tx.UpdateItemComment(item.ID, comment, updated); err != nil {
			return nil, err
		}
		item.Comment = comment
	} else {
		if err := tx.TouchItem(item.ID, updated); err != nil {
			return nil, err
		}
	}

	if req.Tags != nil {
		if err := tx.ReplaceItemTags(item.ID, req.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	item.UpdatedAt = &updated
	tags, err := conn.LoadItemTags(item.ID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}
