package domain

import "time"

// Failure is one item that did not import, with the reason that goes
// into the run log.
type Failure struct {
	Path   string
	Reason string
}

// RunReport aggregates one import session. It lives for the duration of
// a run and is written out as the human-readable run log.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Found             int
	Supported         int
	Copied            int
	Skipped           int
	Failed            int
	Converted         int
	ConversionsFailed int

	Failures           []Failure
	ConversionFailures []Failure
}
