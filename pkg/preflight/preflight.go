// Package preflight checks that a drain can start before anything is
// transferred.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/provider"
)

// Mode defines how aggressive preflight checks are.
type Mode string

const (
	// ModePlanOnly makes no provider calls and touches no files.
	ModePlanOnly Mode = "plan-only"

	// ModeReadSafe lists one item and inspects the output directory
	// without creating it.
	ModeReadSafe Mode = "read-safe"

	// ModeWriteProbe additionally creates the output directory and writes
	// and removes a probe file in it.
	ModeWriteProbe Mode = "write-probe"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePlanOnly, ModeReadSafe, ModeWriteProbe:
		return m, nil
	}
	return "", fmt.Errorf("unsupported preflight mode %q (plan-only|read-safe|write-probe)", s)
}

// Spec controls how preflight checks are executed.
type Spec struct {
	Mode      Mode
	FolderID  string
	OutputDir string
}

// Capability names are stable strings used in JSONL output.
const (
	CapFolderList  = "folder.list"
	CapOutputDir   = "output.dir"
	CapOutputWrite = "output.write"
)

// Drain runs the preflight checks for a drain job.
//
// Every check is run even when an earlier one fails; the returned error
// joins all failures.
func Drain(ctx context.Context, prov provider.Provider, spec Spec) (*output.PreflightRecord, error) {
	rec := &output.PreflightRecord{
		Mode:     string(spec.Mode),
		FolderID: spec.FolderID,
		Results:  []output.PreflightCheckResult{},
	}
	if spec.Mode == ModePlanOnly {
		return rec, nil
	}

	var errs []error
	add := func(r output.PreflightCheckResult, err error) {
		if err != nil {
			r.Allowed = false
			r.ErrorCode = normalizeErrorCode(err)
			r.Detail = err.Error()
			errs = append(errs, err)
		} else {
			r.Allowed = true
		}
		rec.Results = append(rec.Results, r)
	}

	_, err := prov.List(ctx, provider.ListOptions{FolderID: spec.FolderID, PageSize: 1})
	add(output.PreflightCheckResult{
		Capability: CapFolderList,
		Method:     fmt.Sprintf("List(folder=%q,pageSize=1)", spec.FolderID),
	}, err)

	add(output.PreflightCheckResult{
		Capability: CapOutputDir,
		Method:     fmt.Sprintf("Stat(%q)", spec.OutputDir),
	}, checkOutputDir(spec.OutputDir))

	if spec.Mode == ModeWriteProbe {
		add(output.PreflightCheckResult{
			Capability: CapOutputWrite,
			Method:     "MkdirAll+CreateTemp+Remove",
		}, probeWrite(spec.OutputDir))
	}

	return rec, errors.Join(errs...)
}

// checkOutputDir accepts an existing directory, or a missing one whose
// nearest existing ancestor is a directory.
func checkOutputDir(dir string) error {
	if dir == "" {
		return errors.New("output directory is empty")
	}
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return &os.PathError{Op: "stat", Path: p, Err: errors.New("not a directory")}
			}
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if parent := filepath.Dir(p); parent == p {
			return err
		}
	}
}

func probeWrite(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".drivedrain-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func normalizeErrorCode(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return output.ErrCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return output.ErrCodeTimeout
	case provider.IsInvalidCredentials(err):
		return output.ErrCodeInvalidCredentials
	case provider.IsAccessDenied(err):
		return output.ErrCodeAccessDenied
	case provider.IsNotFound(err):
		return output.ErrCodeNotFound
	case provider.IsThrottled(err):
		return output.ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return output.ErrCodeUnavailable
	case errors.Is(err, os.ErrPermission), errors.Is(err, os.ErrExist):
		return output.ErrCodeLocalWrite
	default:
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return output.ErrCodeLocalWrite
		}
		return output.ErrCodeInternal
	}
}
