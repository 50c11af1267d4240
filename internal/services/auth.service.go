package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer    = "statboard"
	secretFileName = ".statboard-secret-key"
	minSecretLen   = 32
)

// ErrInvalidToken is returned for tokens that parse but do not verify
var ErrInvalidToken = errors.New("auth: invalid token")

// AuthService signs and verifies viewer tokens for the live feed
type AuthService struct {
	secretKey   []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// ViewerClaims identifies the dashboard viewer a token was issued to
type ViewerClaims struct {
	Viewer string `json:"viewer"`
	jwt.RegisteredClaims
}

// NewAuthService creates an AuthService. An empty secret is replaced by the
// persisted key in the user's home directory, generating it on first use.
func NewAuthService(secret string, tokenExpiry time.Duration) *AuthService {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		secret = loadOrCreateSecret(secretKeyPath())
	}
	if len(secret) < minSecretLen {
		slog.Warn("Token secret shorter than recommended, padding", "length", len(secret))
		secret += randomHex((minSecretLen - len(secret) + 1) / 2)
	}
	if tokenExpiry <= 0 {
		tokenExpiry = 90 * 24 * time.Hour
	}
	return &AuthService{
		secretKey:   []byte(secret),
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}
}

func secretKeyPath() string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, secretFileName)
}

func loadOrCreateSecret(path string) string {
	if data, err := os.ReadFile(path); err == nil {
		if s := strings.TrimSpace(string(data)); s != "" {
			slog.Info("Loaded persisted token secret", "path", path)
			return s
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "statboard"
	}
	secret := fmt.Sprintf("statboard-%s-%s", hostname, randomHex(16))

	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		slog.Warn("Could not persist token secret", "path", path, "err", err)
	} else {
		slog.Info("Generated and persisted token secret", "path", path)
	}
	return secret
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// GenerateToken issues a signed token for viewer
func (a *AuthService) GenerateToken(viewer string) (string, error) {
	if viewer == "" {
		return "", errors.New("auth: viewer is required")
	}
	now := a.now()
	claims := ViewerClaims{
		Viewer: viewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies tokenString and returns its claims
func (a *AuthService) ValidateToken(tokenString string) (*ViewerClaims, error) {
	claims := &ViewerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secretKey, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenExpiry is the lifetime of newly issued tokens
func (a *AuthService) TokenExpiry() time.Duration {
	return a.tokenExpiry
}
