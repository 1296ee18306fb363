package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/provider/gdrive"
	"github.com/3leaps/drivedrain/pkg/provider/mock"
)

// resetFlags restores every flag to its default so commands can be executed
// more than once in a test binary.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// isolateEnv keeps user config files and DRIVEDRAIN_* variables out of tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, name := range []string{
		envReadOnly, "DRIVEDRAIN_CREDENTIALS", "DRIVEDRAIN_FOLDER", "DRIVEDRAIN_OUT",
		"DRIVEDRAIN_DRIVE_FOLDER_ID", "DRIVEDRAIN_OUTPUT_DIR", "DRIVEDRAIN_OUTPUT_RECORDS",
	} {
		t.Setenv(name, "")
	}
}

// useProvider makes commands use m instead of Google Drive.
func useProvider(t *testing.T, m *mock.Provider) {
	t.Helper()
	orig := newProvider
	newProvider = func(context.Context, gdrive.Config) (provider.Provider, error) {
		return m, nil
	}
	t.Cleanup(func() { newProvider = orig })
}

// execute runs the root command with args and returns its error and stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	rootCmd.SetContext(context.Background())
	err := rootCmd.Execute()
	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	return out.String(), err
}

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2024-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	SetVersionInfo("1.2.3", "abc123", "2025-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "drivedrain 1.2.3")
	assert.Contains(t, out, "abc123")
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		name string
		flag bool
		env  string
		want bool
	}{
		{name: "default", want: false},
		{name: "flag", flag: true, want: true},
		{name: "env true", env: "true", want: true},
		{name: "env 1", env: "1", want: true},
		{name: "env false", env: "false", want: false},
		{name: "env garbage", env: "yes please", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envReadOnly, tt.env)
			readOnly = tt.flag
			defer func() { readOnly = false }()

			assert.Equal(t, tt.want, IsReadOnly())
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: exitFailure},
		{name: "exit error", err: exitError(exitInvalidArgument, "bad", errors.New("x")), want: exitInvalidArgument},
		{
			name: "wrapped exit error",
			err:  errors.Join(errors.New("outer"), exitError(exitFileWrite, "write", nil)),
			want: exitFileWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	inner := errors.New("disk full")
	err := exitError(exitFileWrite, "Failed to write", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "Failed to write: disk full")
	assert.Contains(t, err.Error(), "exit code")

	bare := exitError(exitFailure, "Nothing underneath", nil)
	assert.Equal(t, "Nothing underneath (exit code 1)", bare.Error())
}

func TestContextExitCode(t *testing.T) {
	code, ok := contextExitCode(context.Canceled)
	assert.True(t, ok)
	assert.Equal(t, exitCancelled, code)

	code, ok = contextExitCode(context.DeadlineExceeded)
	assert.True(t, ok)
	assert.Equal(t, exitServiceUnavailable, code)

	_, ok = contextExitCode(errors.New("other"))
	assert.False(t, ok)
}
