// Package output emits drain results as JSON Lines.
//
// Every line is a Record envelope whose Data payload is determined by its
// Type. Lines are self-contained and can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record types, versioned as drivedrain.<type>.v<version>.
const (
	TypeItem      = "drivedrain.item.v1"
	TypeError     = "drivedrain.error.v1"
	TypeProgress  = "drivedrain.progress.v1"
	TypeSummary   = "drivedrain.summary.v1"
	TypePreflight = "drivedrain.preflight.v1"
	TypePlan      = "drivedrain.plan.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	Type     string          `json:"type"`
	TS       time.Time       `json:"ts"`
	JobID    string          `json:"job_id"`
	Provider string          `json:"provider"`
	Data     json.RawMessage `json:"data"`
}

// ItemRecord reports the terminal state of one drive item.
type ItemRecord struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`

	// ExportMimeType is set when the item was exported rather than downloaded.
	ExportMimeType string `json:"export_mime_type,omitempty"`

	// Path is the local file path (set whenever one was resolved).
	Path  string `json:"path,omitempty"`
	Bytes int64  `json:"bytes"`

	// State is one of skipped, transfer_failed, deleted, delete_failed.
	State string `json:"state"`

	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PlanRecord describes what a drain would do with one item.
type PlanRecord struct {
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	MimeType       string `json:"mime_type"`
	Action         string `json:"action"`
	ExportMimeType string `json:"export_mime_type,omitempty"`
	Path           string `json:"path,omitempty"`
	Size           int64  `json:"size,omitempty"`
}

// Plan actions.
const (
	ActionExport   = "export"
	ActionDownload = "download"
	ActionSkip     = "skip"
)

// PreflightRecord is the payload for capability checks run before a drain.
type PreflightRecord struct {
	Mode     string                 `json:"mode"`
	FolderID string                 `json:"folder_id,omitempty"`
	Results  []PreflightCheckResult `json:"results"`
}

// PreflightCheckResult is a single capability check result.
type PreflightCheckResult struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
	Method     string `json:"method,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ErrorRecord reports a fatal error that ended the run.
type ErrorRecord struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Stage    string `json:"stage,omitempty"`
	FolderID string `json:"folder_id,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// Error codes shared by item, error and preflight records.
const (
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeThrottled          = "THROTTLED"
	ErrCodeUnavailable        = "PROVIDER_UNAVAILABLE"
	ErrCodeNotDownloadable    = "NOT_DOWNLOADABLE"
	ErrCodeLocalWrite         = "LOCAL_WRITE"
	ErrCodeCancelled          = "CANCELLED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeInternal           = "INTERNAL"
)

// ProgressRecord is emitted as the run moves through its phases.
type ProgressRecord struct {
	Phase       string `json:"phase"`
	Pages       int    `json:"pages"`
	ItemsListed int    `json:"items_listed"`
	ItemsDone   int    `json:"items_done"`
	Bytes       int64  `json:"bytes"`
	Current     string `json:"current,omitempty"`
}

// Progress phases.
const (
	PhaseListing    = "listing"
	PhaseProcessing = "processing"
	PhaseComplete   = "complete"
)

// SummaryRecord is emitted once at the end of a drain.
type SummaryRecord struct {
	FolderID      string        `json:"folder_id"`
	Seen          int           `json:"seen"`
	Skipped       int           `json:"skipped"`
	Succeeded     int           `json:"succeeded"`
	DeleteFailed  int           `json:"delete_failed"`
	Failed        int           `json:"failed"`
	BytesWritten  int64         `json:"bytes_written"`
	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
	Cancelled     bool          `json:"cancelled,omitempty"`
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // marshal_data, marshal_record or write
	Err error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
