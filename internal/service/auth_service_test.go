package service

import (
	"testing"
	"time"

	"github.com/datavines/warn-console/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, enabled bool, password string) (*AuthService, *TokenManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.Enabled = enabled
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = password
	tokens, err := NewTokenManager("secret", time.Hour, "HS256", nil)
	require.NoError(t, err)
	return NewAuthService(cfg, tokens), tokens
}

func TestAuthenticatePlainPassword(t *testing.T) {
	auth, _ := newTestAuth(t, true, "s3cret")

	_, err := auth.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	token, err := auth.Authenticate(" admin ", "s3cret")
	require.NoError(t, err)
	claims, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.UserName)
}

func TestAuthenticateBcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	auth, _ := newTestAuth(t, true, string(hash))

	_, err = auth.Authenticate("admin", "hashed-pw")
	assert.NoError(t, err)
	_, err = auth.Authenticate("admin", string(hash))
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestValidateAcceptsContinuousMachineToken(t *testing.T) {
	auth, tokens := newTestAuth(t, true, "pw")
	token, err := tokens.GenerateContinuousToken("robot")
	require.NoError(t, err)

	claims, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "robot", claims.UserName)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	auth, _ := newTestAuth(t, true, "pw")
	other, err := NewTokenManager("other-secret", time.Hour, "HS256", nil)
	require.NoError(t, err)
	token, err := other.GenerateToken("admin")
	require.NoError(t, err)

	_, err = auth.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = auth.Refresh(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh(t *testing.T) {
	auth, tokens := newTestAuth(t, true, "pw")
	token, err := auth.Authenticate("admin", "pw")
	require.NoError(t, err)

	refreshed, err := auth.Refresh(token)
	require.NoError(t, err)
	assert.True(t, tokens.ValidateToken(refreshed, "admin"))
}

func TestDisabledAuth(t *testing.T) {
	auth, _ := newTestAuth(t, false, "")
	assert.False(t, auth.Enabled())

	token, err := auth.Authenticate("anyone", "anything")
	require.NoError(t, err)
	assert.Empty(t, token)

	claims, err := auth.Validate("")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", claims.UserName)
}
