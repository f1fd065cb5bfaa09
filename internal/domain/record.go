package domain

import "time"

type Status string

const (
	StatusCopied  Status = "copied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ImportRecord is the persisted outcome of one import attempt. Records
// are append-only; a correction is a new record for the same identity.
type ImportRecord struct {
	Identity   Identity  `json:"identity"`
	SourcePath string    `json:"source_path"`
	DestPath   string    `json:"dest_path,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
}

func (r ImportRecord) Valid() bool {
	if r.Identity == "" {
		return false
	}
	switch r.Status {
	case StatusCopied, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}
