package service

import (
	"crypto/subtle"
	"strings"

	"github.com/datavines/warn-console/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles console login and session validation.
type AuthService struct {
	enabled  bool
	username string
	password string
	tokens   *TokenManager
}

// NewAuthService builds AuthService from config.
func NewAuthService(cfg *config.Config, tokens *TokenManager) *AuthService {
	authCfg := cfg.Auth
	username := strings.TrimSpace(authCfg.Username)
	if username == "" {
		username = "admin"
	}
	password := strings.TrimSpace(authCfg.Password)
	if password == "" {
		password = "admin123"
	}
	return &AuthService{
		enabled:  authCfg.Enabled,
		username: username,
		password: password,
		tokens:   tokens,
	}
}

// Enabled reports whether authentication is enforced.
func (a *AuthService) Enabled() bool {
	return a != nil && a.enabled
}

// Username returns configured admin username.
func (a *AuthService) Username() string {
	if a == nil {
		return ""
	}
	return a.username
}

// Authenticate validates user credentials and returns a session token.
func (a *AuthService) Authenticate(username, password string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if !a.matchUsername(username) || !a.matchPassword(password) {
		return "", ErrBadCredentials
	}
	return a.tokens.GenerateToken(a.username)
}

// Validate parses a token and returns its claims if valid. Any token signed
// with the configured secret is accepted, including continuous tokens
// issued to machine clients.
func (a *AuthService) Validate(token string) (*TokenClaims, error) {
	if !a.Enabled() {
		return &TokenClaims{UserName: "anonymous"}, nil
	}
	return a.tokens.Claims(token)
}

// Refresh re-issues a valid session token.
func (a *AuthService) Refresh(token string) (string, error) {
	if _, err := a.Validate(token); err != nil {
		return "", err
	}
	return a.tokens.RefreshToken(token)
}

func (a *AuthService) matchUsername(input string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(a.username)) == 1
}

func (a *AuthService) matchPassword(input string) bool {
	if strings.HasPrefix(a.password, "$2a$") || strings.HasPrefix(a.password, "$2b$") || strings.HasPrefix(a.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}
