package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGeneralConfigParsesHosts(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
hosts:
  - url: db1.example.com
    ssh_user: deploy
    name: db-primary
    data:
      role: primary
  - url: db2.example.com
    ssh_user: deploy
    passwordless_user: true
`)

	hosts, err := LoadGeneralConfig(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	require.Equal(t, "db-primary", hosts[0].Repr())
	require.True(t, hosts[1].PasswordlessUser)
}

func TestLoadGeneralConfigRejectsDuplicateURL(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
hosts:
  - url: db1.example.com
  - url: db1.example.com
`)

	_, err := LoadGeneralConfig(path)
	require.Error(t, err)
}

func TestLoadGeneralConfigRejectsMissingURL(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
hosts:
  - ssh_user: deploy
`)

	_, err := LoadGeneralConfig(path)
	require.Error(t, err)
}
