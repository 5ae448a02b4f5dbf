package api

import (
	"context"
	"strings"

	"github.com/example/storefront-cart/modules/admin"
	"github.com/gofiber/fiber/v2"
)

const (
	// SessionContextKey is the key used to store the session id in the Fiber context.
	SessionContextKey = "session_id"
	// AdminContextKey is the key used to store admin claims in the Fiber context.
	AdminContextKey = "admin"
)

// TokenValidator resolves a session token to its session id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// AdminValidator resolves an admin token to its claims.
type AdminValidator interface {
	ValidateToken(ctx context.Context, token string) (*admin.Claims, error)
}

// bearerToken extracts the Bearer token from the Authorization header. When
// there is none it returns the reason instead.
func bearerToken(c *fiber.Ctx) (token, problem string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header is required"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Use: Bearer <token>"
	}
	token = strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "Token is required"
	}
	return token, ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

// SessionMiddleware requires a valid Bearer session token.
func SessionMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		sessionID, err := tokens.Validate(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired session token")
		}

		c.Locals(SessionContextKey, sessionID)
		return c.Next()
	}
}

// AdminMiddleware requires a valid Bearer admin token.
func AdminMiddleware(admins AdminValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		claims, err := admins.ValidateToken(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, "Invalid or expired admin token")
		}

		c.Locals(AdminContextKey, claims)
		return c.Next()
	}
}

// SessionOrAdminMiddleware admits either an admin token or a session token.
func SessionOrAdminMiddleware(tokens TokenValidator, admins AdminValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		if sessionID, err := tokens.Validate(token); err == nil {
			c.Locals(SessionContextKey, sessionID)
			return c.Next()
		}
		if claims, err := admins.ValidateToken(c.UserContext(), token); err == nil {
			c.Locals(AdminContextKey, claims)
			return c.Next()
		}

		return unauthorized(c, "Invalid or expired token")
	}
}

// sessionID returns the id stored by SessionMiddleware.
func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(SessionContextKey).(string)
	return id
}

// adminClaims returns the claims stored by AdminMiddleware, or nil.
func adminClaims(c *fiber.Ctx) *admin.Claims {
	claims, _ := c.Locals(AdminContextKey).(*admin.Claims)
	return claims
}
