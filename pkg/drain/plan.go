package drain

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/provider"
)

// Plan is the dry-run view of a drain: what would be transferred where.
type Plan struct {
	FolderID string
	Entries  []PlanEntry
}

// PlanEntry describes the planned handling of one listed item.
type PlanEntry struct {
	Item   provider.Item
	Action string // output.ActionExport, ActionDownload or ActionSkip

	LocalName      string
	Path           string
	ExportMimeType string

	// Problem explains why the transfer is expected to fail, if it is.
	Problem string
}

// Counts returns the number of entries per action.
func (p *Plan) Counts() map[string]int {
	counts := make(map[string]int, 3)
	for _, e := range p.Entries {
		counts[e.Action]++
	}
	return counts
}

// Problems returns the entries expected to fail.
func (p *Plan) Problems() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Problem != "" {
			out = append(out, e)
		}
	}
	return out
}

// Plan lists the folder and resolves every item without transferring or
// trashing anything. The output directory is not created.
func (r *Runner) Plan(ctx context.Context) (*Plan, error) {
	items, err := r.listAll(ctx)
	if err != nil {
		return nil, r.fail(ctx, &RunError{Stage: StageList, FolderID: r.cfg.FolderID, Err: err})
	}

	plan := &Plan{FolderID: r.cfg.FolderID, Entries: make([]PlanEntry, 0, len(items))}
	claimed := make(map[string]bool, len(items))

	for _, item := range items {
		entry := r.planEntry(item, claimed)
		plan.Entries = append(plan.Entries, entry)

		if err := r.writer.WritePlan(ctx, &output.PlanRecord{
			ItemID:         item.ID,
			Name:           item.Name,
			MimeType:       item.MimeType,
			Action:         entry.Action,
			ExportMimeType: entry.ExportMimeType,
			Path:           entry.Path,
			Size:           item.Size,
		}); err != nil {
			r.logger.Warn("Failed to write plan record", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
	return plan, nil
}

func (r *Runner) planEntry(item provider.Item, claimed map[string]bool) PlanEntry {
	entry := PlanEntry{Item: item}
	if !r.cfg.Matcher.Match(item.Name) {
		entry.Action = output.ActionSkip
		return entry
	}

	resolved := r.processor.Resolve(item)
	entry.LocalName = resolved.LocalName
	if resolved.Exported {
		entry.Action = output.ActionExport
		entry.ExportMimeType = resolved.Target.MimeType
	} else {
		entry.Action = output.ActionDownload
	}

	path, err := r.sink.Resolve(resolved.LocalName)
	switch {
	case err != nil:
		entry.Problem = "invalid local name"
		return entry
	case resolved.Unmapped:
		entry.Problem = "native document kind has no export mapping"
	case claimed[path]:
		entry.Problem = "local name used by an earlier item"
	default:
		if _, statErr := os.Stat(path); statErr == nil {
			entry.Problem = "local file already exists"
		} else if !errors.Is(statErr, os.ErrNotExist) {
			entry.Problem = statErr.Error()
		}
	}
	entry.Path = path
	claimed[path] = true
	return entry
}
