package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("QUICKBOOKS_CLIENT_ID", "test-client")
	t.Setenv("QUICKBOOKS_CLIENT_SECRET", "test-secret")

	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/test.db
logger:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)

	// Credentials come from the environment, defaults fill the rest.
	assert.Equal(t, "test-client", cfg.QuickBooks.ClientID)
	assert.Equal(t, "test-secret", cfg.QuickBooks.ClientSecret)
	assert.Equal(t, "https://sandbox-quickbooks.api.intuit.com", cfg.QuickBooks.BaseURL)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("QUICKBOOKS_CLIENT_ID", "")
	t.Setenv("QUICKBOOKS_CLIENT_SECRET", "")

	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
