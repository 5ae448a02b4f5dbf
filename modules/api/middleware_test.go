package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/storefront-cart/modules/admin"
	"github.com/gofiber/fiber/v2"
)

// mockValidator implements TokenValidator for testing
type mockValidator struct {
	validateFunc func(token string) (string, error)
}

func (m *mockValidator) Validate(token string) (string, error) {
	if m.validateFunc != nil {
		return m.validateFunc(token)
	}
	return "", errors.New("not implemented")
}

func TestSessionMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		validator      *mockValidator
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			validator:      &mockValidator{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Authorization header is required"`,
		},
		{
			name:           "invalid authorization format - no bearer",
			authHeader:     "Basic token123",
			validator:      &mockValidator{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid authorization header format`,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid-token",
			validator: &mockValidator{
				validateFunc: func(string) (string, error) {
					return "", errors.New("invalid token")
				},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired session token"`,
		},
		{
			name:       "valid token",
			authHeader: "Bearer valid-token",
			validator: &mockValidator{
				validateFunc: func(token string) (string, error) {
					if token != "valid-token" {
						return "", errors.New("unexpected token")
					}
					return "session-123", nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `session-123`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/protected", SessionMiddleware(tt.validator), func(c *fiber.Ctx) error {
				return c.SendString(sessionID(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}

			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %s, want it to contain %s", body, tt.expectedBody)
			}
		})
	}
}

// mockAdmins implements AdminValidator for testing
type mockAdmins struct {
	token string
}

func (m *mockAdmins) ValidateToken(_ context.Context, token string) (*admin.Claims, error) {
	if m.token == "" || token != m.token {
		return nil, admin.ErrInvalidToken
	}
	return &admin.Claims{AdminID: "admin-1", Email: "ops@example.com"}, nil
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{"missing authorization header", "", http.StatusUnauthorized, `"Authorization header is required"`},
		{"no bearer prefix", "Basic admin-token", http.StatusUnauthorized, `Invalid authorization header format`},
		{"session token", "Bearer tok-s1", http.StatusUnauthorized, `"Invalid or expired admin token"`},
		{"admin token", "Bearer admin-token", http.StatusOK, `admin-1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/admin", AdminMiddleware(&mockAdmins{token: "admin-token"}), func(c *fiber.Ctx) error {
				return c.SendString(adminClaims(c).AdminID)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %s, want it to contain %s", body, tt.expectedBody)
			}
		})
	}
}

func TestSessionOrAdminMiddleware(t *testing.T) {
	sessions := &mockValidator{validateFunc: func(token string) (string, error) {
		if token == "tok-s1" {
			return "s1", nil
		}
		return "", errors.New("invalid token")
	}}

	tests := []struct {
		name           string
		token          string
		expectedStatus int
		expectedBody   string
	}{
		{"session token", "tok-s1", http.StatusOK, "session:s1"},
		{"admin token", "admin-token", http.StatusOK, "admin:admin-1"},
		{"neither", "forged", http.StatusUnauthorized, `"Invalid or expired token"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/either", SessionOrAdminMiddleware(sessions, &mockAdmins{token: "admin-token"}), func(c *fiber.Ctx) error {
				if claims := adminClaims(c); claims != nil {
					return c.SendString("admin:" + claims.AdminID)
				}
				return c.SendString("session:" + sessionID(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/either", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %s, want it to contain %s", body, tt.expectedBody)
			}
		})
	}
}
