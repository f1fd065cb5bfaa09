package device

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"camport/internal/domain"
	apperrors "camport/internal/errors"
)

// FS is the slice of filesystem access the enumerator needs.
type FS interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	Stat(path string) (fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// Local enumerates a device exposed as a mounted filesystem path. The
// walk is restartable, never resumes mid-way, and treats everything as
// read-only. Transient per-item errors are retried a bounded number of
// times; only an unreadable root aborts enumeration.
type Local struct {
	FS      FS
	Root    string
	Subdirs []string
	Retries int
	Backoff time.Duration
	Logger  *zap.Logger
}

func (d *Local) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Local) List(ctx context.Context) ([]domain.FileDescriptor, []string, error) {
	if _, err := d.FS.Stat(d.Root); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.DeviceAccess, "list device", d.Root, err)
	}

	roots := d.sourceRoots()
	var descs []domain.FileDescriptor
	var warnings []string

	for _, root := range roots {
		err := d.FS.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				if path == root {
					return walkErr
				}
				// a folder that vanished between listing and read
				warnings = append(warnings, fmt.Sprintf("%s: %v", path, walkErr))
				d.logger().Warn("skipping unreadable entry",
					zap.String("path", path), zap.Error(walkErr))
				return nil
			}
			if entry.IsDir() {
				return nil
			}

			info, err := d.statWithRetry(ctx, path, entry)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
				d.logger().Warn("giving up on entry",
					zap.String("path", path), zap.Error(err))
				return nil
			}

			rel, err := filepath.Rel(d.Root, path)
			if err != nil {
				rel = entry.Name()
			}
			descs = append(descs, domain.FileDescriptor{
				Path:    filepath.ToSlash(rel),
				Name:    entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				// graceful stop: hand back what was enumerated so far
				return descs, warnings, err
			}
			return nil, warnings, apperrors.Wrap(apperrors.DeviceAccess, "walk device", root, err)
		}
	}
	return descs, warnings, nil
}

// sourceRoots returns the configured subtrees that exist, or the device
// root itself when none of them do.
func (d *Local) sourceRoots() []string {
	var roots []string
	for _, sub := range d.Subdirs {
		candidate := filepath.Join(d.Root, sub)
		if info, err := d.FS.Stat(candidate); err == nil && info.IsDir() {
			roots = append(roots, candidate)
		}
	}
	if len(roots) == 0 {
		roots = []string{d.Root}
	}
	return roots
}

func (d *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full := filepath.Join(d.Root, filepath.FromSlash(path))
	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, d.Backoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}
		rc, err := d.FS.Open(full)
		if err == nil {
			return rc, nil
		}
		lastErr = err
	}
	return nil, apperrors.Wrap(apperrors.DeviceAccess, "open", full, lastErr)
}

func (d *Local) statWithRetry(ctx context.Context, path string, entry fs.DirEntry) (fs.FileInfo, error) {
	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, d.Backoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}
		info, err := entry.Info()
		if err == nil {
			return info, nil
		}
		lastErr = err
		// fall back to a fresh stat; the entry may be stale
		if info, err := d.FS.Stat(path); err == nil {
			return info, nil
		}
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
