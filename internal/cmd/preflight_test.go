package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/drivedrain/pkg/output"
	"github.com/3leaps/drivedrain/pkg/preflight"
	"github.com/3leaps/drivedrain/pkg/provider"
)

func TestPreflight_ReadSafe(t *testing.T) {
	isolateEnv(t)
	m := newDrainMock()
	useProvider(t, m)

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	records := filepath.Join(dir, "preflight.jsonl")

	_, err := execute(t, "preflight", "--folder", testFolder, "--out", out, "--records", records)
	require.NoError(t, err)

	assert.NoDirExists(t, out)
	recs := readRecords(t, records)
	require.Len(t, recs, 1)
	assert.Equal(t, output.TypePreflight, recs[0].Type)

	calls := m.CallsFor("List")
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].PageSize)
}

func TestPreflight_WriteProbe(t *testing.T) {
	isolateEnv(t)
	useProvider(t, newDrainMock())

	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	_, err := execute(t, "preflight", "--folder", testFolder, "--out", out,
		"--mode", string(preflight.ModeWriteProbe), "--records", filepath.Join(dir, "p.jsonl"))
	require.NoError(t, err)

	// The probe leaves the directory behind but no probe file.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreflight_Errors(t *testing.T) {
	t.Run("readonly blocks write-probe", func(t *testing.T) {
		isolateEnv(t)
		m := newDrainMock()
		useProvider(t, m)

		_, err := execute(t, "--readonly", "preflight", "--folder", testFolder, "--out", t.TempDir(), "--mode", "write-probe")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "readonly")
		assert.Empty(t, m.Calls())
	})

	t.Run("plan-only rejected", func(t *testing.T) {
		isolateEnv(t)
		useProvider(t, newDrainMock())

		_, err := execute(t, "preflight", "--folder", testFolder, "--out", t.TempDir(), "--mode", "plan-only")
		require.Error(t, err)
		assert.Equal(t, exitInvalidArgument, ExitCode(err))
	})

	t.Run("access denied", func(t *testing.T) {
		isolateEnv(t)
		m := newDrainMock()
		m.ListErr = provider.ErrAccessDenied
		useProvider(t, m)

		dir := t.TempDir()
		_, err := execute(t, "preflight", "--folder", testFolder, "--out", dir, "--records", filepath.Join(dir, "p.jsonl"))
		require.Error(t, err)
		assert.Equal(t, exitServiceUnavailable, ExitCode(err))
	})
}
