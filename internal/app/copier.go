package app

import (
	"context"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"camport/internal/domain"
	apperrors "camport/internal/errors"
	"camport/internal/hashing"
	"camport/internal/ledger"
)

// Copier transfers planned items into the destination tree. Every file
// lands in the staging folder first and is renamed into place only
// after its size is verified, so a partially written file is never
// visible at a final path.
type Copier struct {
	Device       Device
	FS           FileSystem
	Ledger       *ledger.Ledger
	Workers      int
	RetryCount   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
	OnProgress   ProgressFunc
}

type CopyOutcome struct {
	Entry  domain.PlanEntry
	Record domain.ImportRecord
}

func (c *Copier) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Copier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run executes the plan over a bounded worker pool. One bad item never
// aborts the run; cancellation lets in-flight copies finish their
// current atomic step and records unstarted items as skipped.
func (c *Copier) Run(ctx context.Context, plan domain.DestinationPlan, destRoot, stagingDir string) ([]CopyOutcome, error) {
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "worker pool", "", err)
	}
	defer pool.Release()

	outcomes := make([]CopyOutcome, len(plan.Entries))
	var (
		wg       sync.WaitGroup
		progress sync.Mutex
		finished int
	)
	total := len(plan.Entries)

	for i, entry := range plan.Entries {
		i, entry := i, entry

		if entry.Action != domain.ActionCopy {
			outcomes[i] = c.noCopyOutcome(entry)
			c.record(outcomes[i])
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			outcomes[i] = c.copyEntry(ctx, i, entry, destRoot, stagingDir)
			c.record(outcomes[i])
			if c.OnProgress != nil {
				progress.Lock()
				finished++
				c.OnProgress("copy", finished, total)
				progress.Unlock()
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			outcomes[i] = c.failedOutcome(entry, fmt.Sprintf("submit copy task: %v", err))
			c.record(outcomes[i])
		}
	}
	wg.Wait()
	return outcomes, nil
}

// record flushes one outcome to the ledger as soon as its item is
// terminal, so a crash mid-run loses at most the in-flight items.
func (c *Copier) record(out CopyOutcome) {
	if err := c.Ledger.Record(out.Record); err != nil {
		c.logger().Warn("ledger append failed",
			zap.String("identity", string(out.Record.Identity)),
			zap.Error(err))
	}
}

func (c *Copier) copyEntry(ctx context.Context, idx int, entry domain.PlanEntry, destRoot, stagingDir string) CopyOutcome {
	if ctx.Err() != nil {
		return c.skippedOutcome(entry, "run cancelled before copy started")
	}

	destPath := filepath.Join(destRoot, filepath.FromSlash(entry.RelPath))
	tempPath := filepath.Join(stagingDir, stagingName(idx, entry.RelPath))

	var lastErr error
	for attempt := 0; attempt <= c.RetryCount; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, c.RetryBackoff, attempt); err != nil {
				return c.skippedOutcome(entry, "run cancelled during retry")
			}
		}
		err := c.transfer(ctx, entry.Item, tempPath, destPath)
		if err == nil {
			c.logger().Debug("copied",
				zap.String("source", entry.Item.Desc.Path),
				zap.String("dest", entry.RelPath))
			return CopyOutcome{Entry: entry, Record: domain.ImportRecord{
				Identity:   entry.Item.Identity,
				SourcePath: entry.Item.Desc.Path,
				DestPath:   entry.RelPath,
				ImportedAt: c.now(),
				Status:     domain.StatusCopied,
			}}
		}
		lastErr = err
		if ctx.Err() != nil {
			return c.skippedOutcome(entry, "run cancelled mid-copy")
		}
		c.logger().Warn("copy attempt failed",
			zap.String("source", entry.Item.Desc.Path),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return c.failedOutcome(entry, lastErr.Error())
}

// transfer is one attempt at the staged copy: stream to a temp file,
// verify the byte count (and content hash when the identity carries
// one), then atomically rename into the final path.
func (c *Copier) transfer(ctx context.Context, item domain.MediaItem, tempPath, destPath string) error {
	src, err := c.Device.Open(ctx, item.Desc.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.FS.Create(tempPath)
	if err != nil {
		return apperrors.Wrap(apperrors.IOFailure, "stage", tempPath, err)
	}

	var (
		w io.Writer = dst
		h hash.Hash
	)
	wantHash := hashDigest(item.Identity)
	if wantHash != "" {
		h = hashing.New()
		w = io.MultiWriter(dst, h)
	}

	written, err := io.Copy(w, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.discardTemp(tempPath)
		return apperrors.Wrap(apperrors.IOFailure, "write", tempPath, err)
	}

	if written != item.Desc.Size {
		c.discardTemp(tempPath)
		return apperrors.New(apperrors.CopyIntegrity, "verify", destPath,
			fmt.Sprintf("wrote %d bytes, source reported %d", written, item.Desc.Size))
	}
	if h != nil && hashing.Sum(h) != wantHash {
		c.discardTemp(tempPath)
		return apperrors.New(apperrors.CopyIntegrity, "verify", destPath,
			"content hash changed between identity scan and copy")
	}

	if err := c.FS.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		c.discardTemp(tempPath)
		return apperrors.Wrap(apperrors.IOFailure, "mkdir", filepath.Dir(destPath), err)
	}
	if err := c.FS.Rename(tempPath, destPath); err != nil {
		c.discardTemp(tempPath)
		return apperrors.Wrap(apperrors.IOFailure, "commit", destPath, err)
	}
	return nil
}

func (c *Copier) discardTemp(tempPath string) {
	if err := c.FS.Remove(tempPath); err != nil {
		c.logger().Debug("could not remove staging file",
			zap.String("path", tempPath), zap.Error(err))
	}
}

func (c *Copier) noCopyOutcome(entry domain.PlanEntry) CopyOutcome {
	switch entry.Action {
	case domain.ActionSkipExisting:
		return c.skippedOutcome(entry, entry.Reason)
	default:
		return c.failedOutcome(entry, entry.Reason)
	}
}

func (c *Copier) skippedOutcome(entry domain.PlanEntry, reason string) CopyOutcome {
	return CopyOutcome{Entry: entry, Record: domain.ImportRecord{
		Identity:   entry.Item.Identity,
		SourcePath: entry.Item.Desc.Path,
		DestPath:   entry.RelPath,
		ImportedAt: c.now(),
		Status:     domain.StatusSkipped,
		Reason:     reason,
	}}
}

func (c *Copier) failedOutcome(entry domain.PlanEntry, reason string) CopyOutcome {
	return CopyOutcome{Entry: entry, Record: domain.ImportRecord{
		Identity:   entry.Item.Identity,
		SourcePath: entry.Item.Desc.Path,
		DestPath:   entry.RelPath,
		ImportedAt: c.now(),
		Status:     domain.StatusFailed,
		Reason:     reason,
	}}
}

// stagingName flattens a destination-relative path into a staging file
// name. Flattening alone is not injective (a/b.jpg and a_b.jpg collide),
// so the plan index keeps concurrent workers on distinct temp files.
func stagingName(idx int, relPath string) string {
	flat := strings.NewReplacer("/", "_", "\\", "_").Replace(relPath)
	return fmt.Sprintf("%04d_%s.part", idx, domain.SanitizeFilename(flat, "item"))
}

func hashDigest(id domain.Identity) string {
	const prefix = "b3:"
	if strings.HasPrefix(string(id), prefix) {
		return strings.TrimPrefix(string(id), prefix)
	}
	return ""
}

func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	if base <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(base << (attempt - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
