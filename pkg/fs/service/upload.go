package service

import (
	"context"
	"encoding/hex"
	"io"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/shelf-fs/shelf/internal/logger"
	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// UploadRequest carries one create-or-replace upload.
type UploadRequest struct {
	// TargetUID addresses a container (create) or an existing file
	// (replace).
	TargetUID string

	// Basename names the new file on the create path. Ignored on replace.
	Basename string

	// Mime is the declared content type. Immutable once a file exists.
	Mime string

	// ExpectedHash is the optional raw x-hash header value
	// (`blake3:<hex>`). When set, the streamed content must hash to it.
	ExpectedHash string

	Body io.Reader
}

// Upload runs the create-or-replace protocol. Uploading to a container
// creates a new file under it; uploading to an existing file replaces its
// content in place. Either way the returned item reflects the committed
// metadata, and the on-disk content at the final path is at every point
// either fully the old version or fully the new one.
func (s *Service) Upload(ctx context.Context, userID string, req UploadRequest) (*models.Item, error) {
	if req.Mime == "" {
		return nil, models.NewValidationError("content-type")
	}

	expected := ""
	if req.ExpectedHash != "" {
		var err error
		expected, err = parseExpectedHash(req.ExpectedHash)
		if err != nil {
			return nil, err
		}
	}

	conn := s.store.Conn(ctx)
	item, err := getOwnedItem(conn, userID, req.TargetUID)
	if err != nil {
		return nil, err
	}
	medium, err := conn.GetMediumForItemUID(item.UID)
	if err != nil {
		return nil, err
	}

	if item.IsContainer() {
		return s.uploadCreate(ctx, conn, item, medium, req, expected)
	}
	return s.uploadReplace(ctx, conn, item, medium, req, expected)
}

// uploadCreate streams a new file into the container. The temp file is
// named after the new item's uid so it can never collide with a sibling
// basename, and it is promoted to the final name only after the metadata
// insert is staged.
func (s *Service) uploadCreate(ctx context.Context, conn *store.Conn, container *models.Item, medium *models.Medium, req UploadRequest, expected string) (*models.Item, error) {
	if !models.BasenameValid(req.Basename) {
		return nil, models.NewValidationError("basename")
	}

	pair, err := backend.MatchUp(medium.Backend, container.Backend)
	if err != nil {
		return nil, err
	}
	dirAbs := pair.Local.FullPath()

	if _, taken, err := conn.NameCheck(container.ID, req.Basename); err != nil {
		return nil, err
	} else if taken {
		return nil, models.ErrAlreadyExists
	}

	newUID := uuid.New().String()
	tmpPath := filepath.Join(dirAbs, newUID+".tmp")
	finalPath := filepath.Join(dirAbs, req.Basename)
	relPath := path.Join(pair.Local.Node.Path, req.Basename)

	created := now()
	item := &models.Item{
		UID:      newUID,
		UserID:   container.UserID,
		MediumID: medium.ID,
		ParentID: &container.ID,
		Basename: req.Basename,
		Type:     models.TypeFile,
		Path:     container.ChildPath(),
		Mime:     req.Mime,
		Backend:  backend.NewLocalNode(relPath),
		Tags:     models.TagMap{},
	}

	var (
		written int64
		digest  string
		tx      *store.Tx
	)
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	err = runSaga("upload create", []sagaStep{
		{
			name: "write temp",
			run:  func() error { return s.writeTemp(tmpPath, req.Body, &written, &digest) },
			undo: func() error { return s.removeIfPresent(tmpPath) },
		},
		{
			name: "verify hash",
			run: func() error {
				if expected != "" && expected != digest {
					return models.ErrInvalidHash
				}
				return nil
			},
		},
		{
			name: "stage row",
			run: func() error {
				var err error
				if tx, err = s.store.Begin(ctx); err != nil {
					return err
				}
				item.Size = written
				item.Hash = digest
				item.CreatedAt = created
				return tx.CreateItem(item)
			},
		},
		{
			name: "promote",
			run:  func() error { return s.disk.Rename(tmpPath, finalPath) },
			undo: func() error { return s.removeIfPresent(finalPath) },
		},
		{
			name: "commit",
			run:  func() error { return tx.Commit() },
		},
	})
	if err != nil {
		return nil, err
	}

	s.recorder.ObserveUpload(written)
	logger.Info("file created", "uid", item.UID, "basename", item.Basename, "size", written)
	return item, nil
}

// uploadReplace streams new content for an existing file. The whole rename
// sequence runs under the item's advisory lock so two concurrent replaces
// of the same file cannot interleave; the old bytes survive under the
// `.prev` staging name until the metadata commit succeeds.
func (s *Service) uploadReplace(ctx context.Context, conn *store.Conn, stale *models.Item, medium *models.Medium, req UploadRequest, expected string) (*models.Item, error) {
	release := s.locks.Acquire(stale.UID)
	defer release()

	// Reload under the lock: a concurrent replace may have committed new
	// size/hash since the caller's read.
	item, err := conn.GetItemByUID(stale.UID)
	if err != nil {
		return nil, err
	}

	if item.Mime != req.Mime {
		return nil, models.ErrMimeMismatch
	}

	pair, err := backend.MatchUp(medium.Backend, item.Backend)
	if err != nil {
		return nil, err
	}
	finalPath := pair.Local.FullPath()
	dirAbs := filepath.Dir(finalPath)
	tmpPath := filepath.Join(dirAbs, item.UID+".tmp")
	prevPath := filepath.Join(dirAbs, item.UID+".prev")

	// Metadata and disk must agree before touching anything.
	if _, err := s.disk.Stat(finalPath); err != nil {
		if isNotExist(err) {
			return nil, models.ErrFileMissing
		}
		return nil, err
	}

	var (
		written int64
		digest  string
		tx      *store.Tx
	)
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	err = runSaga("upload replace", []sagaStep{
		{
			name: "write temp",
			run:  func() error { return s.writeTemp(tmpPath, req.Body, &written, &digest) },
			undo: func() error { return s.removeIfPresent(tmpPath) },
		},
		{
			name: "verify hash",
			run: func() error {
				if expected != "" && expected != digest {
					return models.ErrInvalidHash
				}
				return nil
			},
		},
		{
			name: "stage row",
			run: func() error {
				var err error
				if tx, err = s.store.Begin(ctx); err != nil {
					return err
				}
				if err := tx.LockItem(item.ID); err != nil {
					return err
				}
				updated := now()
				item.Size = written
				item.Hash = digest
				item.UpdatedAt = &updated
				return tx.UpdateFileContent(item)
			},
		},
		{
			name: "stash current",
			run:  func() error { return s.disk.Rename(finalPath, prevPath) },
			undo: func() error { return s.disk.Rename(prevPath, finalPath) },
		},
		{
			name: "promote",
			run:  func() error { return s.disk.Rename(tmpPath, finalPath) },
			undo: func() error { return s.disk.Rename(finalPath, tmpPath) },
		},
		{
			name: "commit",
			run:  func() error { return tx.Commit() },
		},
	})
	if err != nil {
		return nil, err
	}

	// The operation is durably correct at this point; a leftover prev file
	// is disk litter, not corruption.
	if err := s.disk.RemoveFile(prevPath); err != nil && !isNotExist(err) {
		logger.Warn("stale previous content left on disk",
			"uid", item.UID, "path", prevPath, "error", err)
	}

	tags, err := conn.LoadItemTags(item.ID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags

	s.recorder.ObserveUpload(written)
	logger.Info("file replaced", "uid", item.UID, "basename", item.Basename, "size", written)
	return item, nil
}

// writeTemp opens the temp path exclusively and streams the body into it,
// hashing as it goes. On success written and digest carry the byte count
// and hex blake3 of the content. Failure paths remove the temp file
// themselves: saga compensation only unwinds earlier steps, and on the
// replace path the temp name is deterministic, so a leftover would block
// every retry at CreateExclusive.
func (s *Service) writeTemp(tmpPath string, body io.Reader, written *int64, digest *string) error {
	f, err := s.disk.CreateExclusive(tmpPath)
	if err != nil {
		return err
	}

	hasher := blake3.New()
	meter := &meteredWriter{dst: f, hash: hasher, max: s.maxUploadBytes}

	if _, err := io.Copy(meter, body); err != nil {
		f.Close()
		s.discardTemp(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		s.discardTemp(tmpPath)
		return err
	}

	*written = meter.n
	*digest = hex.EncodeToString(hasher.Sum(nil))
	return nil
}

// meteredWriter tees writes into the hash while counting bytes with
// overflow-checked addition.
type meteredWriter struct {
	dst  io.Writer
	hash io.Writer
	n    int64
	max  int64
}

func (w *meteredWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		w.hash.Write(p[:n])
		next := w.n + int64(n)
		if next < w.n || (w.max > 0 && next > w.max) {
			return n, models.ErrMaxSize
		}
		w.n = next
	}
	return n, err
}

// discardTemp drops a partially written temp file so a later attempt can
// create the path exclusively again.
func (s *Service) discardTemp(tmpPath string) {
	if err := s.removeIfPresent(tmpPath); err != nil {
		logger.Warn("partial temp file left on disk", "path", tmpPath, "error", err)
	}
}

// removeIfPresent removes a file, treating an already-absent path as done.
func (s *Service) removeIfPresent(path string) error {
	if err := s.disk.RemoveFile(path); err != nil && !isNotExist(err) {
		return err
	}
	return nil
}
