package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/preflight"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/provider/mock"
)

func resultFor(rec *output.PreflightRecord, capability string) (output.PreflightCheckResult, bool) {
	for _, r := range rec.Results {
		if r.Capability == capability {
			return r, true
		}
	}
	return output.PreflightCheckResult{}, false
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"plan-only", "read-safe", "write-probe"} {
		m, err := preflight.ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, preflight.Mode(s), m)
	}
	_, err := preflight.ParseMode("yolo")
	assert.Error(t, err)
}

func TestDrain_PlanOnlyMakesNoCalls(t *testing.T) {
	m := mock.New()
	rec, err := preflight.Drain(context.Background(), m, preflight.Spec{
		Mode:      preflight.ModePlanOnly,
		FolderID:  "f",
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	require.NoError(t, err)
	assert.Equal(t, "plan-only", rec.Mode)
	assert.Empty(t, rec.Results)
	assert.Empty(t, m.Calls())
}

func TestDrain_ReadSafe(t *testing.T) {
	m := mock.New()
	out := filepath.Join(t.TempDir(), "not", "yet", "created")

	rec, err := preflight.Drain(context.Background(), m, preflight.Spec{
		Mode:      preflight.ModeReadSafe,
		FolderID:  "f",
		OutputDir: out,
	})
	require.NoError(t, err)

	list, ok := resultFor(rec, preflight.CapFolderList)
	require.True(t, ok)
	assert.True(t, list.Allowed)
	assert.Equal(t, `List(folder="f",pageSize=1)`, list.Method)

	dir, ok := resultFor(rec, preflight.CapOutputDir)
	require.True(t, ok)
	assert.True(t, dir.Allowed)

	_, ok = resultFor(rec, preflight.CapOutputWrite)
	assert.False(t, ok)
	assert.NoDirExists(t, out)

	calls := m.CallsFor("List")
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].PageSize)
}

func TestDrain_ListDenied(t *testing.T) {
	m := mock.New()
	m.ListErr = provider.ErrAccessDenied

	rec, err := preflight.Drain(context.Background(), m, preflight.Spec{
		Mode:      preflight.ModeReadSafe,
		FolderID:  "f",
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, provider.IsAccessDenied(err))

	list, _ := resultFor(rec, preflight.CapFolderList)
	assert.False(t, list.Allowed)
	assert.Equal(t, output.ErrCodeAccessDenied, list.ErrorCode)

	// The output check still ran.
	dir, ok := resultFor(rec, preflight.CapOutputDir)
	require.True(t, ok)
	assert.True(t, dir.Allowed)
}

func TestDrain_OutputUnderFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	rec, err := preflight.Drain(context.Background(), mock.New(), preflight.Spec{
		Mode:      preflight.ModeReadSafe,
		FolderID:  "f",
		OutputDir: filepath.Join(file, "out"),
	})
	require.Error(t, err)

	dir, _ := resultFor(rec, preflight.CapOutputDir)
	assert.False(t, dir.Allowed)
	assert.Equal(t, output.ErrCodeLocalWrite, dir.ErrorCode)
}

func TestDrain_WriteProbe(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	rec, err := preflight.Drain(context.Background(), mock.New(), preflight.Spec{
		Mode:      preflight.ModeWriteProbe,
		FolderID:  "f",
		OutputDir: out,
	})
	require.NoError(t, err)

	w, ok := resultFor(rec, preflight.CapOutputWrite)
	require.True(t, ok)
	assert.True(t, w.Allowed)

	assert.DirExists(t, out)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")
}
