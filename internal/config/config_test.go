package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":5600", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 8640000*time.Second, cfg.Auth.TokenTimeout)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 10, cfg.Table.DefaultPageSize)
	assert.Equal(t, 100, cfg.Table.MaxPageSize)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
http:
  addr: ":9000"
auth:
  algorithm: hs512
  token_timeout: 2h
table:
  default_page_size: 20
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("WARN_CONSOLE_AUTH_USERNAME", "ops")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "HS512", cfg.Auth.Algorithm)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTimeout)
	assert.Equal(t, 20, cfg.Table.DefaultPageSize)
	assert.Equal(t, "ops", cfg.Auth.Username)
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  algorithm: RS256\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RS256")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
