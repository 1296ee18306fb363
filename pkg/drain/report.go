package drain

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/3leaps/drivedrain/pkg/output"
)

// WriteReport prints a human-readable summary to w.
//
// The report keeps fully drained items, items transferred but still present
// remotely, and failed items apart, and lists the latter two by name.
func WriteReport(w io.Writer, s *Summary) error {
	pw := &reportWriter{w: w}

	pw.printf("Folder %s: %s items listed in %s\n",
		s.FolderID, humanize.Comma(int64(s.Seen)), s.Duration.Round(time.Millisecond))
	pw.printf("  %-28s %s\n", "drained (copied + trashed):", humanize.Comma(int64(s.Succeeded())))
	pw.printf("  %-28s %s\n", "copied, not trashed:", humanize.Comma(int64(s.DeleteFailed)))
	pw.printf("  %-28s %s\n", "failed (left in place):", humanize.Comma(int64(s.Failed)))
	if s.Skipped > 0 {
		pw.printf("  %-28s %s\n", "skipped by filter:", humanize.Comma(int64(s.Skipped)))
	}
	if n := s.Pending(); n > 0 {
		pw.printf("  %-28s %s\n", "not processed (cancelled):", humanize.Comma(int64(n)))
	}
	pw.printf("  %-28s %s\n", "written locally:", humanize.Bytes(uint64(s.BytesWritten)))

	if undeleted := s.UndeletedItems(); len(undeleted) > 0 {
		pw.printf("\nCopied but still in the remote folder:\n")
		for _, r := range undeleted {
			pw.printf("  - %s (%s) -> %s: %v\n", r.Item.Name, r.Item.ID, r.Outcome.Path, r.TrashErr)
		}
	}
	if failed := s.FailedItems(); len(failed) > 0 {
		pw.printf("\nFailed:\n")
		for _, r := range failed {
			pw.printf("  - %s (%s): %v\n", r.Item.Name, r.Item.ID, r.Outcome.Err)
		}
	}
	return pw.err
}

// WritePlanReport prints a human-readable dry-run plan to w.
func WritePlanReport(w io.Writer, p *Plan) error {
	pw := &reportWriter{w: w}
	counts := p.Counts()

	pw.printf("Folder %s: %d items listed (plan only, nothing transferred)\n", p.FolderID, len(p.Entries))
	for _, e := range p.Entries {
		var size string
		if e.Item.Size > 0 {
			size = humanize.Bytes(uint64(e.Item.Size))
		}
		switch e.Action {
		case output.ActionSkip:
			pw.printf("  skip      %s\n", e.Item.Name)
		default:
			pw.printf("  %-9s %s -> %s %s\n", e.Action, e.Item.Name, e.Path, size)
		}
		if e.Problem != "" {
			pw.printf("            ! %s\n", e.Problem)
		}
	}
	pw.printf("export: %d, download: %d, skip: %d, expected failures: %d\n",
		counts[output.ActionExport], counts[output.ActionDownload], counts[output.ActionSkip], len(p.Problems()))
	return pw.err
}

// reportWriter keeps the first write error so callers check once.
type reportWriter struct {
	w   io.Writer
	err error
}

func (p *reportWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
