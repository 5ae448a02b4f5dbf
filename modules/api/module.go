package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/storefront-cart/modules/admin"
	"github.com/example/storefront-cart/modules/broadcast"
	"github.com/example/storefront-cart/modules/cart"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/example/storefront-cart/modules/order"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Tokens issues and validates cart session tokens.
type Tokens interface {
	TokenValidator
	NewSession() (sessionID, token string, err error)
	TTL() int64
}

// Config configures the HTTP API.
type Config struct {
	Port               string
	CORSAllowedOrigins string
	// RateLimit caps requests per minute per client IP on /api/v1; 0 disables it.
	RateLimit int
}

// APIModule serves the storefront HTTP and WebSocket API.
type APIModule struct {
	config      Config
	app         *fiber.App
	cartPort    cart.CartPort
	catalogPort catalog.CatalogPort
	orderPort   order.OrderPort
	adminPort   admin.AdminPort
	hub         *broadcast.Hub
	tokens      Tokens
	checks      map[string]mono.HealthCheckableModule
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config) *APIModule {
	if config.Port == "" {
		config.Port = "3000"
	}
	if config.CORSAllowedOrigins == "" {
		config.CORSAllowedOrigins = "*"
	}
	return &APIModule{
		config: config,
		checks: make(map[string]mono.HealthCheckableModule),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"cart", "catalog", "order", "admin"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "cart":
		m.cartPort = cart.NewCartAdapter(container)
	case "catalog":
		m.catalogPort = catalog.NewCatalogAdapter(container)
	case "order":
		m.orderPort = order.NewOrderAdapter(container)
	case "admin":
		m.adminPort = admin.NewAdminAdapter(container)
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetTokens sets the session token manager (called from main.go).
func (m *APIModule) SetTokens(tokens Tokens) {
	m.tokens = tokens
}

// AddHealthCheck includes a module in GET /health.
func (m *APIModule) AddHealthCheck(name string, module mono.HealthCheckableModule) {
	m.checks[name] = module
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	switch {
	case m.cartPort == nil:
		return fmt.Errorf("cart adapter dependency not set")
	case m.catalogPort == nil:
		return fmt.Errorf("catalog adapter dependency not set")
	case m.orderPort == nil:
		return fmt.Errorf("order adapter dependency not set")
	case m.adminPort == nil:
		return fmt.Errorf("admin adapter dependency not set")
	case m.hub == nil:
		return fmt.Errorf("broadcast hub dependency not set")
	case m.tokens == nil:
		return fmt.Errorf("session token manager not set")
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.config.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on :%s", m.config.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.config.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.config.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
		Format: "[api] ${time} ${status} ${method} ${path} ${latency}\n",
	}))

	m.setupRoutes(app)
	return app
}

// rateLimiter returns the per-IP limiter for /api/v1, or a pass-through.
func (m *APIModule) rateLimiter() fiber.Handler {
	if m.config.RateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               m.config.RateLimit,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many requests, please slow down",
			})
		},
	})
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[api] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
