package app

import (
	"context"
	"io"
	"io/fs"
	"time"

	"camport/internal/domain"
)

// Device is the host-access capability for the source side. List is
// restartable: each call re-enumerates from scratch. The second return
// value carries per-item enumeration warnings; only an inaccessible
// root is an error.
type Device interface {
	List(ctx context.Context) ([]domain.FileDescriptor, []string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FileSystem is the destination-side filesystem capability.
type FileSystem interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	Stat(path string) (fs.FileInfo, error)
	Exists(path string) (bool, error)
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(path string) ([]fs.DirEntry, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

// CaptureTimeReader extracts an embedded capture timestamp from a media
// stream.
type CaptureTimeReader interface {
	CaptureTime(ctx context.Context, r io.Reader) (time.Time, error)
}

// ProgressFunc is called as items move through a stage. The engine has
// no UI of its own; a shell can attach here.
type ProgressFunc func(stage string, current, total int)
