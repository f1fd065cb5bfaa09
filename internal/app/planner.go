package app

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"camport/internal/domain"
)

// maxSuffix bounds the collision search. In practice it is unreachable;
// hitting it marks the single item failed rather than looping forever.
const maxSuffix = 100000

// Planner maps resolved items to destination paths. It runs single
// threaded before any copy starts and performs no filesystem mutation:
// collisions are resolved against a snapshot of existing destination
// state plus the paths claimed earlier in the same plan.
type Planner struct {
	MonthNames     []string
	OrganizeByDate bool
	Logger         *zap.Logger
}

// Plan computes a DestinationPlan for items in enumeration order.
// existing maps destination-relative paths to their on-disk sizes.
func (p *Planner) Plan(items []domain.MediaItem, existing map[string]int64) domain.DestinationPlan {
	plan := domain.DestinationPlan{}
	claimed := make(map[string]bool, len(items))

	for _, item := range items {
		entry := p.planOne(item, existing, claimed)
		switch entry.Action {
		case domain.ActionCopy:
			claimed[entry.RelPath] = true
			plan.CopyCount++
			plan.TotalBytes += item.Desc.Size
		case domain.ActionSkipExisting:
			plan.SkipCount++
		case domain.ActionFail:
			plan.FailCount++
		}
		plan.Entries = append(plan.Entries, entry)
	}

	if p.Logger != nil {
		p.Logger.Debug("destination plan ready",
			zap.Int("copy", plan.CopyCount),
			zap.Int("skip", plan.SkipCount),
			zap.Int("fail", plan.FailCount),
			zap.Int64("bytes", plan.TotalBytes))
	}
	return plan
}

func (p *Planner) planOne(item domain.MediaItem, existing map[string]int64, claimed map[string]bool) domain.PlanEntry {
	rel := p.basePath(item)

	size, onDisk := existing[rel]
	if !onDisk && !claimed[rel] {
		return domain.PlanEntry{Item: item, RelPath: rel, Action: domain.ActionCopy}
	}

	// A same-size file already at the planned path is this item from an
	// earlier (possibly interrupted) run whose ledger record was lost;
	// re-copying under a suffix would duplicate it.
	if onDisk && size == item.Desc.Size {
		return domain.PlanEntry{
			Item:    item,
			RelPath: rel,
			Action:  domain.ActionSkipExisting,
			Reason:  "destination exists with matching size",
		}
	}

	dir := path.Dir(rel)
	name := path.Base(rel)
	for n := 1; n <= maxSuffix; n++ {
		candidate := path.Join(dir, domain.SuffixedName(name, n))
		if _, ok := existing[candidate]; ok || claimed[candidate] {
			continue
		}
		return domain.PlanEntry{Item: item, RelPath: candidate, Action: domain.ActionCopy}
	}
	return domain.PlanEntry{
		Item:    item,
		RelPath: rel,
		Action:  domain.ActionFail,
		Reason:  fmt.Sprintf("no free name after %d suffixes", maxSuffix),
	}
}

func (p *Planner) basePath(item domain.MediaItem) string {
	name := domain.SanitizeFilename(item.Desc.Name, "file")
	if !p.OrganizeByDate {
		if rel := domain.SanitizeRelPath(item.Desc.Path); rel != "" {
			return rel
		}
		return name
	}
	names := p.MonthNames
	if len(names) != 12 {
		names = domain.DefaultMonthNames()
	}
	return path.Join(domain.MonthFolder(item.TakenAt, names), name)
}
