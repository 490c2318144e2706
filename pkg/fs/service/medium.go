package service

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// CreateMediumRequest carries one storage medium creation.
type CreateMediumRequest struct {
	Name string
	// Path is the absolute root directory of the local backend. Must
	// already exist.
	Path string
	Tags models.TagMap
}

// CreateMedium creates a storage medium and provisions its Root item in
// the same transaction. The backing directory must already exist; the
// service never creates medium roots on disk.
func (s *Service) CreateMedium(ctx context.Context, userID string, req CreateMediumRequest) (*models.Medium, error) {
	if !models.MediumNameValid(req.Name) {
		return nil, models.NewValidationError("name")
	}
	if err := models.ValidateTagMap(req.Tags); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(req.Path) {
		return nil, models.NewValidationError("path")
	}
	info, err := s.disk.Stat(req.Path)
	if err != nil || !info.IsDir() {
		return nil, models.NewValidationError("path")
	}

	conn := s.store.Conn(ctx)
	if taken, err := conn.MediumNameTaken(userID, req.Name); err != nil {
		return nil, err
	} else if taken {
		return nil, models.ErrDuplicateMedium
	}

	medium := &models.Medium{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Backend:   backend.NewLocalConfig(req.Path),
		CreatedAt: now(),
		Tags:      req.Tags,
	}
	if medium.Tags == nil {
		medium.Tags = models.TagMap{}
	}

	root := &models.Item{
		UID:       uuid.New().String(),
		UserID:    userID,
		MediumID:  medium.ID,
		Basename:  req.Name,
		Type:      models.TypeRoot,
		Backend:   backend.NewLocalNode(""),
		CreatedAt: medium.CreatedAt,
		Tags:      models.TagMap{},
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.CreateMedium(medium); err != nil {
		return nil, err
	}
	if err := tx.CreateItem(root); err != nil {
		return nil, err
	}
	if len(req.Tags) > 0 {
		if err := tx.ReplaceMediumTags(medium.ID, req.Tags); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.Info("medium created", "id", medium.ID, "name", medium.Name, "root_uid", root.UID)
	return medium, nil
}

// GetMedium retrieves a medium with its tags.
func (s *Service) GetMedium(ctx context.Context, userID, id string) (*models.Medium, error) {
	conn := s.store.Conn(ctx)
	medium, err := getOwnedMedium(conn, userID, id)
	if err != nil {
		return nil, err
	}

	tags, err := conn.LoadMediumTags(medium.ID)
	if err != nil {
		return nil, err
	}
	medium.Tags = tags
	return medium, nil
}

// UpdateMediumRequest carries a medium rename and/or tag replacement.
type UpdateMediumRequest struct {
	MediumID string
	Name     *string
	Tags     models.TagMap
}

// UpdateMedium renames a medium and/or replaces its tag set. A request
// changing neither is ErrNoWork.
func (s *Service) UpdateMedium(ctx context.Context, userID string, req UpdateMediumRequest) (*models.Medium, error) {
	if req.Name == nil && req.Tags == nil {
		return nil, models.ErrNoWork
	}
	if req.Name != nil && !models.MediumNameValid(*req.Name) {
		return nil, models.NewValidationError("name")
	}
	if err := models.ValidateTagMap(req.Tags); err != nil {
		return nil, err
	}

	conn := s.store.Conn(ctx)
	medium, err := getOwnedMedium(conn, userID, req.MediumID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated := now()
	if req.Name != nil && *req.Name != medium.Name {
		if taken, err := tx.MediumNameTaken(userID, *req.Name); err != nil {
			return nil, err
		} else if taken {
			return nil, models.ErrDuplicateMedium
		}
		if err := tx.UpdateMediumName(medium.ID, *req.Name, updated); err != nil {
			return nil, err
		}
		medium.Name = *req.Name
	}
	if req.Tags != nil {
		if err := tx.ReplaceMediumTags(medium.ID, req.Tags); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	medium.UpdatedAt = &updated
	tags, err := conn.LoadMediumTags(medium.ID)
	if err != nil {
		return nil, err
	}
	medium.Tags = tags
	return medium, nil
}

// DeleteMedium soft-deletes a medium and cascades the soft delete to every
// item under it. No physical I/O: the backing directory is left intact.
func (s *Service) DeleteMedium(ctx context.Context, userID, id string) error {
	conn := s.store.Conn(ctx)
	medium, err := getOwnedMedium(conn, userID, id)
	if err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	when := now()
	if err := tx.SoftDeleteMedium(medium.ID, when); err != nil {
		return err
	}
	if err := tx.SoftDeleteMediumItems(medium.ID, when); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Info("medium deleted", "id", medium.ID, "name", medium.Name)
	return nil
}

// ListMediums returns one page of the caller's mediums, min-projected.
func (s *Service) ListMediums(ctx context.Context, userID string, opts store.ListOptions) ([]models.MediumMin, error) {
	mediums, err := s.store.Conn(ctx).ListMediums(userID, opts)
	if err != nil {
		return nil, err
	}

	out := make([]models.MediumMin, 0, len(mediums))
	for i := range mediums {
		out = append(out, mediums[i].Min())
	}
	return out, nil
}
