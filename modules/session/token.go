package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("session token has expired")
)

// Config holds session token configuration.
type Config struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

// DefaultConfig returns a development configuration.
// The secret key must come from SESSION_SECRET outside development.
func DefaultConfig() Config {
	return Config{
		SecretKey: "storefront-dev-secret-change-me",
		TTL:       24 * time.Hour,
		Issuer:    "storefront-cart",
	}
}

// Claims identify one cart session.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates session tokens.
type TokenManager struct {
	config Config
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager with the given configuration.
func NewTokenManager(config Config) *TokenManager {
	return &TokenManager{
		config: config,
		now:    time.Now,
	}
}

// NewSession creates a fresh session id and its token.
func (m *TokenManager) NewSession() (sessionID, token string, err error) {
	sessionID = uuid.New().String()
	token, err = m.Issue(sessionID)
	if err != nil {
		return "", "", err
	}
	return sessionID, token, nil
}

// Issue signs a token for sessionID.
func (m *TokenManager) Issue(sessionID string) (string, error) {
	now := m.now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate checks a token and returns the session id it carries.
func (m *TokenManager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return "", ErrInvalidToken
	}

	return claims.SessionID, nil
}

// TTL returns the token lifetime in seconds.
func (m *TokenManager) TTL() int64 {
	return int64(m.config.TTL.Seconds())
}
