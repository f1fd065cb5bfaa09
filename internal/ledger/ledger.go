package ledger

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"camport/internal/domain"
	apperrors "camport/internal/errors"
)

const maxLineBytes = 1 << 20

// Ledger is the persistent record of previously imported identities,
// stored as an append-only sequence of JSON lines. The whole file is
// loaded at open; appends are serialized so a crash never leaves a
// partially written record followed by a valid one.
type Ledger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	latest map[domain.Identity]domain.ImportRecord
	log    *zap.Logger
}

// Open loads the ledger at path, creating it if absent. A malformed
// trailing line, the footprint of a crashed append, is discarded with a
// warning and does not invalidate earlier entries.
func Open(path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		path:   path,
		latest: make(map[domain.Identity]domain.ImportRecord),
		log:    logger,
	}
	if err := l.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.IOFailure, "open ledger", path, err)
	}
	l.file = f
	return l, nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.IOFailure, "read ledger", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.ImportRecord
		if err := json.Unmarshal(line, &rec); err != nil || !rec.Valid() {
			l.log.Warn("discarding malformed ledger entry",
				zap.String("path", l.path),
				zap.Int("line", lineNo))
			continue
		}
		// later entries override earlier ones
		l.latest[rec.Identity] = rec
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return apperrors.Wrap(apperrors.LedgerCorruption, "scan ledger", l.path, err)
	}
	return nil
}

// Contains reports whether identity has an honored Copied record.
func (l *Ledger) Contains(id domain.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.latest[id]
	return ok && rec.Status == domain.StatusCopied
}

// Record appends rec. Recording the same identity with the same outcome
// again is a no-op apart from a debug audit line.
func (l *Ledger) Record(rec domain.ImportRecord) error {
	if !rec.Valid() {
		return apperrors.New(apperrors.Internal, "record", l.path, "invalid import record")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.latest[rec.Identity]; ok &&
		prev.Status == rec.Status && prev.DestPath == rec.DestPath {
		l.log.Debug("ledger record already present",
			zap.String("identity", string(rec.Identity)),
			zap.String("status", string(rec.Status)))
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "encode record", l.path, err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return apperrors.Wrap(apperrors.IOFailure, "append record", l.path, err)
	}
	l.latest[rec.Identity] = rec
	return nil
}

// LoadAll returns a copy of the latest record per identity.
func (l *Ledger) LoadAll() map[domain.Identity]domain.ImportRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[domain.Identity]domain.ImportRecord, len(l.latest))
	for id, rec := range l.latest {
		out[id] = rec
	}
	return out
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
