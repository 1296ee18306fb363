package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/drivedrain/pkg/export"
)

func TestExportMap_Table(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "export-map")
	require.NoError(t, err)

	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, export.KindDocument)
	assert.Contains(t, out, ".docx")
	assert.Contains(t, out, ".png")
	assert.NotContains(t, out, export.KindFolder)
}

func TestExportMap_YAMLRoundTrips(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	mapping := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(mapping, []byte(`
application/vnd.google-apps.document:
  mime_type: application/pdf
  extension: pdf
`), 0o600))

	out, err := execute(t, "export-map", "--export-map", mapping, "--format", "yaml")
	require.NoError(t, err)

	var table map[string]export.Target
	require.NoError(t, yaml.Unmarshal([]byte(out), &table))
	assert.Equal(t, export.Target{MimeType: "application/pdf", Extension: "pdf"}, table[export.KindDocument])
	assert.Equal(t, "xlsx", table[export.KindSpreadsheet].Extension)

	// The printed table is itself a valid mapping file.
	parsed, err := export.ParseMapping([]byte(out), "effective.yaml")
	require.NoError(t, err)
	assert.Len(t, parsed, 4)
}

func TestExportMap_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "export-map", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, exitInvalidArgument, ExitCode(err))

	_, err = execute(t, "export-map", "--export-map", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, exitFileNotFound, ExitCode(err))
}
