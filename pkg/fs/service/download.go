package service

import (
	"context"
	"io"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

// Download is an open file handle paired with the metadata the transport
// layer needs for its response headers. The caller owns Content and must
// close it.
type Download struct {
	Item    *models.Item
	Content io.ReadSeekCloser
}

// DownloadFile opens a file's content for streaming. Metadata pointing at
// a missing file is ErrFileMissing, surfaced distinctly from NotFound
// because it means disk and metadata have diverged.
func (s *Service) DownloadFile(ctx context.Context, userID, uid string) (*Download, error) {
	conn := s.store.Conn(ctx)
	item, err := getOwnedItem(conn, userID, uid)
	if err != nil {
		return nil, err
	}
	if item.Type != models.TypeFile {
		return nil, models.ErrInvalidType
	}

	medium, err := conn.GetMediumByID(item.MediumID)
	if err != nil {
		return nil, err
	}
	fullPath, err := pairItem(medium, item)
	if err != nil {
		return nil, err
	}

	content, err := s.disk.Open(fullPath)
	if err != nil {
		if isNotExist(err) {
			return nil, models.ErrFileMissing
		}
		return nil, err
	}

	s.recorder.ObserveDownload(item.Size)
	return &Download{Item: item, Content: content}, nil
}
