package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"camport/internal/domain"
	apperrors "camport/internal/errors"
	"camport/internal/hashing"
	"camport/internal/ledger"
	"camport/internal/presentation"
)

const stagingDirName = ".camport-staging"

type State int

const (
	StateIdle State = iota
	StateEnumerating
	StateResolving
	StatePlanning
	StateCopying
	StateConverting
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateResolving:
		return "resolving"
	case StatePlanning:
		return "planning"
	case StateCopying:
		return "copying"
	case StateConverting:
		return "converting"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// Options is the configuration slice the orchestrator needs.
type Options struct {
	DestRoot       string
	RunLogPath     string
	Extensions     domain.ExtensionSet
	Convert        bool
	HashIdentity   bool
	HashMaxBytes   int64
	OrganizeByDate bool
}

// Session coordinates one import run end to end. Per-item failures are
// contained at the item boundary; only an inaccessible device root or
// destination root fails the session.
type Session struct {
	Device    Device
	FS        FileSystem
	Ledger    *ledger.Ledger
	Resolver  *Resolver
	Planner   *Planner
	Copier    *Copier
	Converter *Converter
	Options   Options
	Logger    *zap.Logger
	Now       func() time.Time

	mu    sync.Mutex
	state State
}

// Result is the session aggregate, destroyed after the run log is
// written (only the returned copy survives).
type Result struct {
	domain.RunReport
	State      State
	RunLogPath string
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger().Debug("session state", zap.String("state", st.String()))
}

func (s *Session) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run drives Idle -> Enumerating -> Resolving -> Planning -> Copying ->
// Converting -> Finalizing -> Done. The run log is written at
// Finalizing even when items failed.
func (s *Session) Run(ctx context.Context) (Result, error) {
	report := domain.RunReport{StartedAt: s.now()}
	result := Result{}

	fail := func(err error) (Result, error) {
		s.setState(StateFailed)
		result.RunReport = report
		result.State = StateFailed
		return result, err
	}

	if err := s.FS.MkdirAll(s.Options.DestRoot, 0o755); err != nil {
		return fail(apperrors.Wrap(apperrors.IOFailure, "destination root", s.Options.DestRoot, err))
	}
	stagingDir := filepath.Join(s.Options.DestRoot, stagingDirName)
	if err := s.FS.MkdirAll(stagingDir, 0o755); err != nil {
		return fail(apperrors.Wrap(apperrors.IOFailure, "staging folder", stagingDir, err))
	}
	s.clearStaleParts(stagingDir)

	// Enumerating
	s.setState(StateEnumerating)
	descs, warnings, err := s.Device.List(ctx)
	if err != nil {
		// cancellation is a graceful stop, not a dead device root; the
		// items enumerated so far run through the pipeline and end up
		// recorded Skipped by the copier
		if ctx.Err() == nil {
			return fail(err)
		}
		s.logger().Info("enumeration stopped early", zap.Int("found", len(descs)))
	}
	report.Found = len(descs)
	for _, w := range warnings {
		report.Failed++
		report.Failures = append(report.Failures, domain.Failure{Path: w, Reason: "enumeration failed"})
	}

	var items []domain.MediaItem
	for _, desc := range descs {
		item := domain.NewMediaItem(desc, s.Options.Extensions)
		if item.Kind == domain.KindOther {
			continue
		}
		items = append(items, item)
	}
	report.Supported = len(items)
	s.logger().Info("device scan complete",
		zap.Int("found", report.Found),
		zap.Int("supported", report.Supported))

	// Resolving
	s.setState(StateResolving)
	items = s.Resolver.Resolve(ctx, items)
	items = pairLiveVideos(items)

	// Identity assignment, then ledger filtering
	fresh := items[:0]
	for _, item := range items {
		item.Identity = s.identityFor(ctx, item)
		if s.Ledger.Contains(item.Identity) {
			report.Skipped++
			s.logger().Debug("already imported",
				zap.String("path", item.Desc.Path),
				zap.String("identity", string(item.Identity)))
			continue
		}
		fresh = append(fresh, item)
	}
	items = fresh

	// Planning
	s.setState(StatePlanning)
	existing, err := s.snapshotDestination()
	if err != nil {
		return fail(apperrors.Wrap(apperrors.IOFailure, "snapshot destination", s.Options.DestRoot, err))
	}
	plan := s.Planner.Plan(items, existing)

	// Copying
	s.setState(StateCopying)
	outcomes, err := s.Copier.Run(ctx, plan, s.Options.DestRoot, stagingDir)
	if err != nil {
		return fail(err)
	}
	var copied []CopyOutcome
	for _, out := range outcomes {
		switch out.Record.Status {
		case domain.StatusCopied:
			report.Copied++
			copied = append(copied, out)
		case domain.StatusSkipped:
			report.Skipped++
		case domain.StatusFailed:
			report.Failed++
			report.Failures = append(report.Failures, domain.Failure{
				Path:   out.Entry.Item.Desc.Path,
				Reason: out.Record.Reason,
			})
		}
	}

	// Converting
	if s.Options.Convert {
		s.setState(StateConverting)
		s.convertAll(ctx, copied, &report)
	}

	// Finalizing
	s.setState(StateFinalizing)
	report.FinishedAt = s.now()
	s.cleanStaging(stagingDir)

	runLogPath := s.Options.RunLogPath
	if runLogPath == "" {
		runLogPath = filepath.Join(s.Options.DestRoot,
			fmt.Sprintf("import_%s.log", report.StartedAt.Format("2006-01-02_150405")))
	}
	if err := s.writeRunLog(runLogPath, report); err != nil {
		s.logger().Warn("run log not written", zap.String("path", runLogPath), zap.Error(err))
	}

	s.setState(StateDone)
	result.RunReport = report
	result.State = StateDone
	result.RunLogPath = runLogPath
	s.logger().Info("import finished",
		zap.Int("copied", report.Copied),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("converted", report.Converted))
	return result, nil
}

// identityFor computes the ledger key: a content hash when enabled and
// the file is small enough to hash, else an attribute fingerprint.
func (s *Session) identityFor(ctx context.Context, item domain.MediaItem) domain.Identity {
	if !s.Options.HashIdentity {
		return domain.FingerprintIdentity(item.Desc)
	}
	if s.Options.HashMaxBytes > 0 && item.Desc.Size > s.Options.HashMaxBytes {
		return domain.FingerprintIdentity(item.Desc)
	}

	src, err := s.Device.Open(ctx, item.Desc.Path)
	if err != nil {
		s.logger().Warn("hash identity unavailable, using fingerprint",
			zap.String("path", item.Desc.Path), zap.Error(err))
		return domain.FingerprintIdentity(item.Desc)
	}
	defer src.Close()

	h := hashing.New()
	if _, err := io.Copy(h, src); err != nil {
		s.logger().Warn("hash identity unavailable, using fingerprint",
			zap.String("path", item.Desc.Path), zap.Error(err))
		return domain.FingerprintIdentity(item.Desc)
	}
	return domain.HashIdentity(hashing.Sum(h))
}

func (s *Session) convertAll(ctx context.Context, copied []CopyOutcome, report *domain.RunReport) {
	if s.Converter == nil || !s.Converter.Enabled() {
		s.logger().Info("conversion disabled: external tools not found")
		return
	}
	for _, out := range copied {
		if ctx.Err() != nil {
			return
		}
		destPath := filepath.Join(s.Options.DestRoot, filepath.FromSlash(out.Entry.RelPath))
		rendition, err := s.Converter.Convert(ctx, destPath)
		if err != nil {
			report.ConversionsFailed++
			report.ConversionFailures = append(report.ConversionFailures, domain.Failure{
				Path:   out.Entry.RelPath,
				Reason: err.Error(),
			})
			continue
		}
		if rendition != "" {
			report.Converted++
		}
	}
}

// snapshotDestination records existing destination paths and sizes once,
// before planning; the planner itself never touches the filesystem.
func (s *Session) snapshotDestination() (map[string]int64, error) {
	existing := make(map[string]int64)
	ok, err := s.FS.Exists(s.Options.DestRoot)
	if err != nil || !ok {
		return existing, err
	}

	err = s.FS.WalkDir(s.Options.DestRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == s.Options.DestRoot {
				return walkErr
			}
			return nil
		}
		if entry.IsDir() {
			if entry.Name() == stagingDirName {
				return fs.SkipDir
			}
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.Options.DestRoot, path)
		if err != nil {
			return nil
		}
		existing[filepath.ToSlash(rel)] = info.Size()
		return nil
	})
	return existing, err
}

// clearStaleParts removes leftovers of a crashed run. Partial staging
// files are never resumed; their items simply copy again from scratch.
func (s *Session) clearStaleParts(stagingDir string) {
	entries, err := s.FS.ReadDir(stagingDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		if err := s.FS.Remove(path); err != nil {
			s.logger().Warn("stale staging file not removed",
				zap.String("path", path), zap.Error(err))
		} else {
			s.logger().Info("removed stale staging file", zap.String("path", path))
		}
	}
}

func (s *Session) cleanStaging(stagingDir string) {
	entries, err := s.FS.ReadDir(stagingDir)
	if err != nil {
		return
	}
	if len(entries) == 0 {
		if err := s.FS.Remove(stagingDir); err != nil {
			s.logger().Debug("staging folder not removed",
				zap.String("path", stagingDir), zap.Error(err))
		}
	}
}

func (s *Session) writeRunLog(path string, report domain.RunReport) error {
	w, err := s.FS.Create(path)
	if err != nil {
		return err
	}
	printer := presentation.Printer{Writer: w}
	printer.PrintReport(report)
	return w.Close()
}
