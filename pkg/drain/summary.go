package drain

import (
	"time"

	"github.com/3leaps/drivedrain/pkg/output"
)

// Summary aggregates the results of one drain run.
type Summary struct {
	FolderID string

	// Seen is the number of items returned by the listing.
	Seen int

	// Skipped items did not pass the name filter and were left untouched.
	Skipped int

	// Transferred counts items whose local copy was written, whether or not
	// the remote item was trashed afterwards.
	Transferred int

	// Deleted counts fully drained items: written locally and trashed.
	Deleted int

	// DeleteFailed counts items written locally but still present remotely.
	DeleteFailed int

	// Failed counts items whose transfer failed. They were not trashed.
	Failed int

	BytesWritten int64
	Duration     time.Duration

	// Cancelled is set when the run stopped before processing every item.
	Cancelled bool

	// Results holds one entry per processed item, in listing order.
	Results []ItemResult
}

// Succeeded returns the number of items that were transferred and trashed.
func (s *Summary) Succeeded() int {
	return s.Deleted
}

// Pending returns the number of listed items that were never processed.
// It is non-zero only for a cancelled run.
func (s *Summary) Pending() int {
	return s.Seen - len(s.Results)
}

// FailedItems returns results whose transfer failed.
func (s *Summary) FailedItems() []ItemResult {
	return s.filter(StateTransferFailed)
}

// UndeletedItems returns results that were written locally but could not
// be trashed.
func (s *Summary) UndeletedItems() []ItemResult {
	return s.filter(StateDeleteFailed)
}

func (s *Summary) filter(state State) []ItemResult {
	var out []ItemResult
	for _, r := range s.Results {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) add(r ItemResult) {
	s.Results = append(s.Results, r)
	switch r.State {
	case StateSkipped:
		s.Skipped++
	case StateTransferFailed:
		s.Failed++
	case StateDeleted:
		s.Transferred++
		s.Deleted++
		s.BytesWritten += r.Outcome.Bytes
	case StateDeleteFailed:
		s.Transferred++
		s.DeleteFailed++
		s.BytesWritten += r.Outcome.Bytes
	}
}

// Record converts the summary to its JSONL payload.
func (s *Summary) Record() *output.SummaryRecord {
	return &output.SummaryRecord{
		FolderID:      s.FolderID,
		Seen:          s.Seen,
		Skipped:       s.Skipped,
		Succeeded:     s.Succeeded(),
		DeleteFailed:  s.DeleteFailed,
		Failed:        s.Failed,
		BytesWritten:  s.BytesWritten,
		Duration:      s.Duration,
		DurationHuman: s.Duration.Round(time.Millisecond).String(),
		Cancelled:     s.Cancelled,
	}
}

// itemRecord converts a result to its JSONL payload.
func itemRecord(r ItemResult) *output.ItemRecord {
	rec := &output.ItemRecord{
		ItemID:         r.Item.ID,
		Name:           r.Item.Name,
		MimeType:       r.Item.MimeType,
		ExportMimeType: r.Outcome.ExportMimeType,
		Path:           r.Outcome.Path,
		Bytes:          r.Outcome.Bytes,
		State:          string(r.State),
	}
	if err := r.Err(); err != nil {
		rec.Error = err.Error()
		rec.ErrorCode = ErrorCode(err)
	}
	return rec
}
