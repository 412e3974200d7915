package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/datavines/warn-console/internal/crypto"
	"github.com/datavines/warn-console/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenPrefix is stripped from tokens before parsing.
const TokenPrefix = "Bearer "

const generatedSecretLength = 48

// TokenClaims is the JWT payload issued by TokenManager.
type TokenClaims struct {
	UserName   string `json:"user_name"`
	CreateTime int64  `json:"create_time"`
	jwt.RegisteredClaims
}

// TokenManager issues and inspects HMAC-signed session tokens.
type TokenManager struct {
	secret  []byte
	timeout time.Duration
	method  jwt.SigningMethod
	now     func() time.Time
	logger  *zap.Logger
}

// NewTokenManager builds a TokenManager. An empty secret is replaced by a
// random one, which invalidates issued tokens on restart.
func NewTokenManager(secret string, timeout time.Duration, algorithm string, logger *zap.Logger) (*TokenManager, error) {
	logger = logging.OrNop(logger)
	method, ok := jwt.GetSigningMethod(strings.ToUpper(strings.TrimSpace(algorithm))).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("token timeout must be positive, got %s", timeout)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		generated, err := crypto.GenerateString(generatedSecretLength)
		if err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		secret = generated
		logger.Warn("auth.token_secret is empty, using a random secret; tokens will not survive a restart")
	}
	return &TokenManager{
		secret:  []byte(secret),
		timeout: timeout,
		method:  method,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// GenerateToken issues a token that expires after the configured timeout.
func (m *TokenManager) GenerateToken(username string) (string, error) {
	return m.GenerateTokenWithTimeout(username, m.timeout)
}

// GenerateTokenWithTimeout issues a token with an explicit lifetime.
func (m *TokenManager) GenerateTokenWithTimeout(username string, timeout time.Duration) (string, error) {
	created := m.now()
	return m.sign(username, created, created.Add(timeout))
}

// GenerateContinuousToken issues a token without an expiry, for machine clients.
func (m *TokenManager) GenerateContinuousToken(username string) (string, error) {
	return m.sign(username, m.now(), time.Time{})
}

// GenerateFromToken re-issues a valid token with a new lifetime.
func (m *TokenManager) GenerateFromToken(token string, timeout time.Duration) (string, error) {
	claims, err := m.Claims(token)
	if err != nil {
		return "", err
	}
	if claims.UserName == "" {
		return "", ErrTokenUserInfo
	}
	return m.GenerateTokenWithTimeout(claims.UserName, timeout)
}

// RefreshToken re-issues a valid token with a fresh create time and the
// default lifetime.
func (m *TokenManager) RefreshToken(token string) (string, error) {
	claims, err := m.Claims(token)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(claims.UserName)
}

// Claims parses and verifies a token, accepting an optional Bearer prefix.
func (m *TokenManager) Claims(token string) (*TokenClaims, error) {
	raw := strings.TrimSpace(token)
	if idx := strings.Index(raw, TokenPrefix); idx >= 0 {
		raw = strings.TrimSpace(raw[idx+len(TokenPrefix):])
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	parsed, err := parser.ParseWithClaims(raw, &TokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Username returns the user the token was issued to.
func (m *TokenManager) Username(token string) (string, error) {
	claims, err := m.Claims(token)
	if err != nil {
		return "", err
	}
	return claims.UserName, nil
}

// CreatedAt returns when the token was issued.
func (m *TokenManager) CreatedAt(token string) (time.Time, error) {
	claims, err := m.Claims(token)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(claims.CreateTime), nil
}

// ExpiresAt returns the token expiry; the zero time means it never expires.
func (m *TokenManager) ExpiresAt(token string) (time.Time, error) {
	claims, err := m.Claims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// ValidateToken reports whether token is unexpired and belongs to username.
func (m *TokenManager) ValidateToken(token, username string) bool {
	claims, err := m.Claims(token)
	if err != nil {
		m.logger.Debug("token rejected", zap.Error(err))
		return false
	}
	return claims.UserName == username
}

func (m *TokenManager) sign(username string, created, expires time.Time) (string, error) {
	claims := TokenClaims{
		UserName:   username,
		CreateTime: created.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(created),
		},
	}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
