package drain

import (
	"context"
	"errors"
	"fmt"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/sink"
)

// Stage identifies the pre-flight step a fatal error came from.
type Stage string

const (
	StageOutputDir Stage = "output_dir"
	StageList      Stage = "list"
)

// RunError is a fatal error that stopped a drain before any item was
// processed.
type RunError struct {
	Stage    Stage
	FolderID string
	Path     string
	Err      error
}

func (e *RunError) Error() string {
	switch e.Stage {
	case StageOutputDir:
		return fmt.Sprintf("prepare output directory %s: %v", e.Path, e.Err)
	case StageList:
		return fmt.Sprintf("list folder %s: %v", e.FolderID, e.Err)
	default:
		return fmt.Sprintf("drain %s: %v", e.Stage, e.Err)
	}
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ErrorCode maps an error to the machine-readable code used in JSONL records.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return output.ErrCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return output.ErrCodeTimeout
	case provider.IsInvalidCredentials(err):
		return output.ErrCodeInvalidCredentials
	case provider.IsNotDownloadable(err):
		return output.ErrCodeNotDownloadable
	case provider.IsAccessDenied(err):
		return output.ErrCodeAccessDenied
	case provider.IsNotFound(err):
		return output.ErrCodeNotFound
	case provider.IsThrottled(err):
		return output.ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return output.ErrCodeUnavailable
	}
	var werr *sink.WriteError
	if errors.As(err, &werr) {
		return output.ErrCodeLocalWrite
	}
	return output.ErrCodeInternal
}
