package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/drivedrain/internal/config"
	"github.com/3leaps/drivedrain/internal/observability"
	"github.com/3leaps/drivedrain/pkg/provider"
	"github.com/3leaps/drivedrain/pkg/provider/mock"
)

func TestMaskKeyID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "key id", input: "0123456789abcdef0123", want: "****0123"},
		{name: "exactly 4 chars", input: "ABCD", want: "****"},
		{name: "short", input: "ABC", want: "****"},
		{name: "empty", input: "", want: "****"},
		{name: "5 chars shows last 4", input: "ABCDE", want: "****BCDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskKeyID(tt.input))
		})
	}
}

func TestCheckCredentials(t *testing.T) {
	observability.InitCLILogger("test", false)
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	sa := write("sa.json", `{"type":"service_account","client_email":"bot@p.iam.gserviceaccount.com","private_key_id":"abcdef123456"}`)
	user := write("user.json", `{"type":"authorized_user","client_id":"123"}`)
	garbage := write("garbage.json", `not json`)

	tests := []struct {
		name  string
		creds config.CredentialsConfig
		want  bool
	}{
		{name: "service account", creds: config.CredentialsConfig{File: sa}, want: true},
		{name: "service account with subject", creds: config.CredentialsConfig{File: sa, Subject: "me@example.com"}, want: true},
		{name: "authorized user", creds: config.CredentialsConfig{File: user}, want: true},
		{name: "impersonation needs service account", creds: config.CredentialsConfig{File: user, Subject: "me@example.com"}, want: false},
		{name: "missing file", creds: config.CredentialsConfig{File: filepath.Join(dir, "nope.json")}, want: false},
		{name: "not json", creds: config.CredentialsConfig{File: garbage}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Credentials: tt.creds}
			assert.Equal(t, tt.want, checkCredentials(cfg, 1, 1))
		})
	}

	t.Run("application default credentials", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		assert.True(t, checkCredentials(&config.Config{}, 1, 1))
	})
}

func TestDoctor_Live(t *testing.T) {
	t.Run("lists folder", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		m := newDrainMock()
		useProvider(t, m)

		_, err := execute(t, "doctor", "--live", "--folder", testFolder)
		require.NoError(t, err)

		calls := m.CallsFor("List")
		require.Len(t, calls, 1)
		assert.Equal(t, testFolder, calls[0].FolderID)
		assert.Empty(t, m.CallsFor("Trash"))
	})

	t.Run("list failure", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		m := newDrainMock()
		m.ListErr = provider.ErrInvalidCredentials
		useProvider(t, m)

		_, err := execute(t, "doctor", "--live", "--folder", testFolder)
		require.Error(t, err)
		assert.Equal(t, exitServiceUnavailable, ExitCode(err))
	})

	t.Run("no folder", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		m := mock.New()
		useProvider(t, m)

		_, err := execute(t, "doctor", "--live")
		require.Error(t, err)
		assert.Empty(t, m.Calls())
	})
}
