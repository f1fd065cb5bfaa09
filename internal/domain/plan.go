package domain

type PlanAction int

const (
	ActionCopy PlanAction = iota
	ActionSkipExisting
	ActionFail
)

// PlanEntry maps one MediaItem to its planned destination. RelPath is
// relative to the destination root and already collision-free.
type PlanEntry struct {
	Item    MediaItem
	RelPath string
	Action  PlanAction
	Reason  string
}

// DestinationPlan is computed in full before any copy begins, so naming
// is deterministic even when a run is interrupted and retried.
type DestinationPlan struct {
	Entries    []PlanEntry
	CopyCount  int
	SkipCount  int
	FailCount  int
	TotalBytes int64
}
