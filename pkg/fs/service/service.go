// Package service implements the filesystem protocols: medium and
// directory creation, the create-or-replace upload state machine,
// metadata updates, file and recursive subtree deletion, download and
// listing.
//
// Every mutating protocol orders physical file I/O against an explicit
// metadata transaction and compensates on failure; see upload.go and
// delete.go for the two intricate ones.
package service

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shelf-fs/shelf/pkg/fs/backend"
	"github.com/shelf-fs/shelf/pkg/fs/fsio"
	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
	"github.com/shelf-fs/shelf/pkg/metrics"
)

// Service orchestrates metadata and physical I/O for the filesystem API.
// All methods are safe for concurrent use.
type Service struct {
	store    *store.GORMStore
	disk     fsio.Ops
	recorder metrics.Recorder
	locks    *itemLocks

	// maxUploadBytes bounds a single upload. Zero means no configured
	// bound; int64 overflow is always rejected.
	maxUploadBytes int64
}

// Options configures optional Service collaborators.
type Options struct {
	// Disk is the physical file I/O implementation. Defaults to the
	// operating system.
	Disk fsio.Ops

	// Recorder receives operation metrics. Defaults to a no-op.
	Recorder metrics.Recorder

	// MaxUploadBytes bounds a single upload; zero disables the bound.
	MaxUploadBytes int64
}

// New creates a filesystem service over the given metadata store.
func New(st *store.GORMStore, opts Options) *Service {
	if opts.Disk == nil {
		opts.Disk = fsio.NewOS()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoop()
	}
	return &Service{
		store:          st,
		disk:           opts.Disk,
		recorder:       opts.Recorder,
		locks:          newItemLocks(),
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// now returns the wall clock used for updated/deleted stamps, truncated so
// the value survives a round trip through either database backend.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// getOwnedItem loads an item by uid and verifies ownership. Items owned by
// other users answer ErrItemNotFound so the API never confirms foreign
// uids exist.
func getOwnedItem(conn *store.Conn, userID, uid string) (*models.Item, error) {
	item, err := conn.GetItemByUID(uid)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, models.ErrItemNotFound
	}
	return item, nil
}

// getOwnedMedium loads a medium by id and verifies ownership.
func getOwnedMedium(conn *store.Conn, userID, id string) (*models.Medium, error) {
	medium, err := conn.GetMediumByID(id)
	if err != nil {
		return nil, err
	}
	if medium.UserID != userID {
		return nil, models.ErrMediumNotFound
	}
	return medium, nil
}

// pairItem matches an item's backend node against its medium's config and
// returns the item's absolute on-disk path.
func pairItem(medium *models.Medium, item *models.Item) (string, error) {
	pair, err := backend.MatchUp(medium.Backend, item.Backend)
	if err != nil {
		return "", err
	}
	switch pair.Kind {
	case backend.KindLocal:
		return pair.Local.FullPath(), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", backend.ErrMismatch, pair.Kind)
	}
}

// isNotExist reports whether a disk error means the path was absent.
func isNotExist(err error) bool {
	return fsio.IsNotExist(err)
}

// isExist reports whether a disk error means the path already existed.
func isExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// HashPrefix is the algorithm prefix carried by the x-hash header and the
// download hash header.
const HashPrefix = "blake3:"

// parseExpectedHash validates an `x-hash` header value of the form
// `blake3:<64 hex chars>` and returns the lowercase hex digest.
func parseExpectedHash(header string) (string, error) {
	if !strings.HasPrefix(header, HashPrefix) {
		return "", models.NewValidationError("x-hash")
	}
	digest := strings.ToLower(strings.TrimPrefix(header, HashPrefix))
	if len(digest) != 64 {
		return "", models.NewValidationError("x-hash")
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", models.NewValidationError("x-hash")
	}
	return digest, nil
}

// FormatHash renders a stored hex digest in the wire format used by the
// x-hash headers.
func FormatHash(digest string) string {
	return HashPrefix + digest
}
