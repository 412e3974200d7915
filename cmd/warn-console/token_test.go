package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datavines/warn-console/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCommandPrintsContinuousToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  token_secret: shared\nlog:\n  level: error\n"), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "token", "--username", "robot"})
	require.NoError(t, root.Execute())

	tokens, err := service.NewTokenManager("shared", time.Hour, "HS256", nil)
	require.NoError(t, err)
	token := strings.TrimSpace(out.String())
	assert.True(t, tokens.ValidateToken(token, "robot"))

	expires, err := tokens.ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, expires.IsZero())
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"--config", path, "token", "--username", "robot"})
	assert.Error(t, root.Execute())
}

func TestTokenCommandRequiresUsername(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"token"})
	assert.Error(t, root.Execute())
}
