package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() Config {
	return Config{
		SecretKey: "test-secret-key",
		TTL:       time.Hour,
		Issuer:    "test-issuer",
	}
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	manager := NewTokenManager(testConfig())

	sessionID, token, err := manager.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if token == "" || sessionID == "" {
		t.Fatal("NewSession() returned empty values")
	}

	got, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != sessionID {
		t.Errorf("Validate() = %v, want %v", got, sessionID)
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	manager := NewTokenManager(testConfig())
	issued := time.Now().Add(-2 * time.Hour)
	manager.now = func() time.Time { return issued }

	_, token, err := manager.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	manager.now = time.Now
	if _, err := manager.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Validate() error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenManager_RejectsBadTokens(t *testing.T) {
	manager := NewTokenManager(testConfig())
	_, good, err := manager.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	other := testConfig()
	other.SecretKey = "another-secret"
	_, foreign, _ := NewTokenManager(other).NewSession()

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	_, wrongIssuer, _ := NewTokenManager(otherIssuer).NewSession()

	notUUID, _ := manager.Issue("not-a-uuid")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "x"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"session id not a uuid", notUUID},
		{"alg none", unsigned},
		{"tampered payload", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
