package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", time.Hour, "HS256", nil)
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func TestGenerateAndInspectToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, err := m.GenerateToken("admin")
	require.NoError(t, err)

	name, err := m.Username(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", name)

	created, err := m.CreatedAt(token)
	require.NoError(t, err)
	assert.True(t, created.Equal(now))

	expires, err := m.ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, expires.Equal(now.Add(time.Hour)))

	assert.True(t, m.ValidateToken(token, "admin"))
	assert.True(t, m.ValidateToken(TokenPrefix+token, "admin"))
	assert.False(t, m.ValidateToken(token, "guest"))
}

func TestExpiredTokenIsRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, err := m.GenerateTokenWithTimeout("admin", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, m.ValidateToken(token, "admin"))
	_, err = m.Username(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContinuousTokenNeverExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, err := m.GenerateContinuousToken("robot")
	require.NoError(t, err)

	m.now = func() time.Time { return now.AddDate(10, 0, 0) }
	assert.True(t, m.ValidateToken(token, "robot"))
	expires, err := m.ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, expires.IsZero())
}

func TestRefreshTokenResetsCreateTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, err := m.GenerateToken("admin")
	require.NoError(t, err)

	later := now.Add(30 * time.Minute)
	m.now = func() time.Time { return later }
	refreshed, err := m.RefreshToken(token)
	require.NoError(t, err)

	created, err := m.CreatedAt(refreshed)
	require.NoError(t, err)
	assert.True(t, created.Equal(later))
	expires, err := m.ExpiresAt(refreshed)
	require.NoError(t, err)
	assert.True(t, expires.Equal(later.Add(time.Hour)))
}

func TestGenerateFromToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, err := m.GenerateToken("admin")
	require.NoError(t, err)
	longer, err := m.GenerateFromToken(token, 48*time.Hour)
	require.NoError(t, err)
	expires, err := m.ExpiresAt(longer)
	require.NoError(t, err)
	assert.True(t, expires.Equal(now.Add(48*time.Hour)))

	anonymous, err := m.GenerateToken("")
	require.NoError(t, err)
	_, err = m.GenerateFromToken(anonymous, time.Hour)
	assert.ErrorIs(t, err, ErrTokenUserInfo)
}

func TestForeignAndMalformedTokens(t *testing.T) {
	now := time.Now()
	m := newTestTokenManager(t, now)
	other, err := NewTokenManager("other-secret", time.Hour, "HS256", nil)
	require.NoError(t, err)

	foreign, err := other.GenerateToken("admin")
	require.NoError(t, err)
	assert.False(t, m.ValidateToken(foreign, "admin"))

	_, err = m.Claims("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Claims(TokenPrefix)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := NewTokenManager("test-secret", time.Hour, "HS512", nil)
	require.NoError(t, err)
	wrongAlg, err := hs512.GenerateToken("admin")
	require.NoError(t, err)
	assert.False(t, m.ValidateToken(wrongAlg, "admin"))
}

func TestNewTokenManagerValidation(t *testing.T) {
	_, err := NewTokenManager("s", time.Hour, "RS256", nil)
	assert.Error(t, err)
	_, err = NewTokenManager("s", 0, "HS256", nil)
	assert.Error(t, err)

	m, err := NewTokenManager("", time.Hour, "hs384", nil)
	require.NoError(t, err)
	assert.Len(t, m.secret, generatedSecretLength)
}
