package service

import (
	"context"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// DeleteResult summarizes a delete: how many nodes were removed from both
// disk and metadata, how many were skipped because a descendant failed,
// and how many failed outright. Skipped and failed nodes keep their
// metadata rows so a future retry sees an accurate tree.
type DeleteResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// DeleteItem removes a file or a directory subtree. Roots cannot be
// deleted through this path; delete the medium instead.
func (s *Service) DeleteItem(ctx context.Context, userID, uid string) (*DeleteResult, error) {
	conn := s.store.Conn(ctx)
	item, err := getOwnedItem(conn, userID, uid)
	if err != nil {
		return nil, err
	}
	if item.Type == models.TypeRoot {
		return nil, models.ErrNotPermitted
	}

	medium, err := conn.GetMediumForItemUID(item.UID)
	if err != nil {
		return nil, err
	}

	switch item.Type {
	case models.TypeFile:
		return s.deleteFile(ctx, item, medium)
	case models.TypeDirectory:
		return s.deleteDirectory(ctx, item, medium)
	default:
		return nil, models.ErrInvalidType
	}
}

// deleteFile removes a single file: the metadata delete is staged first,
// then the physical removal runs, then the transaction commits. A physical
// failure before commit rolls the metadata back; an already-absent file
// counts as removed.
func (s *Service) deleteFile(ctx context.Context, item *models.Item, medium *models.Medium) (*DeleteResult, error) {
	fullPath, err := pairItem(medium, item)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.DeleteItemByID(item.ID); err != nil {
		return nil, err
	}
	if err := s.disk.RemoveFile(fullPath); err != nil && !isNotExist(err) {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.recorder.ObserveDelete(1, 0, 0)
	logger.Info("file deleted", "uid", item.UID, "basename", item.Basename)
	return &DeleteResult{Deleted: 1}, nil
}

// deleteDirectory removes a directory and everything beneath it, best
// effort. Phase one queries the full descendant set ordered deepest-first;
// phase two is a pure reduction over that set performing the physical
// removals and computing which metadata rows may be purged.
func (s *Service) deleteDirectory(ctx context.Context, item *models.Item, medium *models.Medium) (*DeleteResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	nodes, err := tx.Descendants(item.ID)
	if err != nil {
		return nil, err
	}

	outcome := reduceDelete(nodes, medium.Backend, s.removeNode)

	// Only rows whose physical node is confirmed gone are purged. The
	// physical removals above completed before this commit, so a committed
	// row deletion never points at surviving bytes.
	if _, err := tx.DeleteItemsByIDs(outcome.Deleted); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result := &DeleteResult{
		Deleted: len(outcome.Deleted),
		Skipped: len(outcome.Skipped),
		Failed:  len(outcome.Failed),
	}
	s.recorder.ObserveDelete(result.Deleted, result.Skipped, result.Failed)

	if result.Failed > 0 || result.Skipped > 0 {
		logger.Warn("subtree delete left survivors",
			"uid", item.UID,
			"deleted", result.Deleted,
			"skipped", result.Skipped,
			"failed", result.Failed)
	} else {
		logger.Info("directory deleted", "uid", item.UID, "nodes", result.Deleted)
	}
	return result, nil
}

// removeNode dispatches the physical removal for one node kind.
func (s *Service) removeNode(pair backend.Pair, typ models.ItemType) error {
	path := pair.Local.FullPath()
	if typ == models.TypeFile {
		return s.disk.RemoveFile(path)
	}
	return s.disk.RemoveDir(path)
}

// deleteOutcome partitions the walked nodes by what happened to them.
type deleteOutcome struct {
	Deleted []int64
	Skipped []int64
	Failed  []int64
}

// reduceDelete walks a deepest-first descendant set and attempts the
// physical removal of each node, maintaining skip-propagation: when a node
// fails, its parent is marked to-skip so a directory is never removed
// while something beneath it may survive. An already-absent node counts as
// removed. The function is pure over its inputs apart from the injected
// remove callback, so the compensation logic is testable without a
// database or a real filesystem.
func reduceDelete(nodes []models.DeleteNode, cfg backend.Config, remove func(backend.Pair, models.ItemType) error) deleteOutcome {
	var outcome deleteOutcome
	skip := make(map[int64]bool)

	propagate := func(node models.DeleteNode) {
		if node.ParentID != nil {
			skip[*node.ParentID] = true
		}
	}

	for _, node := range nodes {
		if skip[node.ID] {
			outcome.Skipped = append(outcome.Skipped, node.ID)
			propagate(node)
			continue
		}

		pair, err := backend.MatchUp(cfg, node.Backend)
		if err != nil {
			logger.Error("backend mismatch during delete", "id", node.ID, "error", err)
			outcome.Failed = append(outcome.Failed, node.ID)
			propagate(node)
			continue
		}

		if err := remove(pair, node.Type); err != nil && !isNotExist(err) {
			logger.Warn("physical removal failed", "id", node.ID, "error", err)
			outcome.Failed = append(outcome.Failed, node.ID)
			propagate(node)
			continue
		}

		outcome.Deleted = append(outcome.Deleted, node.ID)
	}

	return outcome
}
