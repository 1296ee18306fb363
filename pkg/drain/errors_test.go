package drain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/sink"
)

func TestRunError(t *testing.T) {
	cause := errors.New("permission denied")

	err := &RunError{Stage: StageOutputDir, Path: "/backup", Err: cause}
	assert.Equal(t, "prepare output directory /backup: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &RunError{Stage: StageList, FolderID: "abc", Err: cause}
	assert.Equal(t, "list folder abc: permission denied", err.Error())
}

func TestErrorCode(t *testing.T) {
	wrap := func(sentinel error) error {
		return &provider.ProviderError{Op: "Download", Provider: provider.ProviderGoogleDrive, ItemID: "x", Err: sentinel}
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", context.Canceled, output.ErrCodeCancelled},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), output.ErrCodeTimeout},
		{"credentials", wrap(provider.ErrInvalidCredentials), output.ErrCodeInvalidCredentials},
		{"not downloadable", wrap(provider.ErrNotDownloadable), output.ErrCodeNotDownloadable},
		{"access denied", wrap(provider.ErrAccessDenied), output.ErrCodeAccessDenied},
		{"not found", wrap(provider.ErrNotFound), output.ErrCodeNotFound},
		{"throttled", wrap(provider.ErrThrottled), output.ErrCodeThrottled},
		{"unavailable", wrap(provider.ErrProviderUnavailable), output.ErrCodeUnavailable},
		{"local write", &sink.WriteError{Name: "a", Err: sink.ErrExists}, output.ErrCodeLocalWrite},
		{"other", errors.New("boom"), output.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
