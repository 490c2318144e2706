// Package fsio abstracts the physical file operations performed by the
// filesystem service.
//
// Every mutating filesystem protocol interleaves metadata statements with
// disk operations and compensates on failure, so the disk side is kept
// behind a small interface that tests can fault-inject.
package fsio

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// Ops is the set of physical operations the filesystem service performs.
// Paths are absolute, already derived from a matched backend pair.
type Ops interface {
	// Mkdir creates a single directory. Parent must exist.
	Mkdir(path string) error

	// CreateExclusive opens a new file for writing, failing if the path
	// already exists. Used for temporary upload targets so two concurrent
	// uploads can never share a scratch file.
	CreateExclusive(path string) (io.WriteCloser, error)

	// Rename atomically moves oldpath to newpath.
	Rename(oldpath, newpath string) error

	// RemoveFile removes a file. Returns fs.ErrNotExist if absent.
	RemoveFile(path string) error

	// RemoveDir removes an empty directory. Returns fs.ErrNotExist if
	// absent.
	RemoveDir(path string) error

	// Stat returns file info for the path.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadSeekCloser, error)
}

// OS implements Ops directly on the operating system.
type OS struct{}

// NewOS returns the operating-system implementation of Ops.
func NewOS() OS {
	return OS{}
}

func (OS) Mkdir(path string) error {
	return os.Mkdir(path, 0o755)
}

func (OS) CreateExclusive(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (OS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (OS) RemoveFile(path string) error {
	return os.Remove(path)
}

func (OS) RemoveDir(path string) error {
	return os.Remove(path)
}

func (OS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OS) Open(path string) (io.ReadSeekCloser, error) {
	return os.Open(path)
}

// IsNotExist reports whether the error means the path was already absent.
// Removal treats this as success: the desired state is reached no matter
// who got there first.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
