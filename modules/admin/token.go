package admin

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when an admin token is invalid.
	ErrInvalidToken = errors.New("invalid admin token")
	// ErrExpiredToken is returned when an admin token has expired.
	ErrExpiredToken = errors.New("admin token has expired")
)

const roleAdmin = "admin"

// TokenConfig holds admin token configuration.
type TokenConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

// DefaultTokenConfig returns a development configuration.
// The secret key must come from ADMIN_SECRET outside development.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		SecretKey: "storefront-admin-dev-secret-change-me",
		TTL:       8 * time.Hour,
		Issuer:    "storefront-admin",
	}
}

// Claims identify an authenticated admin.
type Claims struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates admin tokens. Session tokens are signed
// with a different key and issuer, so they never validate here.
type TokenManager struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(config TokenConfig) *TokenManager {
	return &TokenManager{config: config, now: time.Now}
}

// Issue signs an admin token.
func (m *TokenManager) Issue(adminID, email string) (string, error) {
	now := m.now()
	claims := Claims{
		AdminID: adminID,
		Email:   email,
		Role:    roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate checks an admin token and returns its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != roleAdmin || claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL returns the token lifetime in seconds.
func (m *TokenManager) TTL() int64 {
	return int64(m.config.TTL.Seconds())
}
