package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/storefront-cart/modules/admin"
	"github.com/example/storefront-cart/modules/api"
	"github.com/example/storefront-cart/modules/broadcast"
	"github.com/example/storefront-cart/modules/cart"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/example/storefront-cart/modules/order"
	"github.com/example/storefront-cart/modules/rediskv"
	"github.com/example/storefront-cart/modules/session"
	"github.com/example/storefront-cart/modules/stockfeed"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Storefront Cart Service ===")

	port := getEnv("PORT", "3000")
	dbPath := getEnv("DB_PATH", "storefront.db")
	dbDebug := getEnvBool("DB_DEBUG", false)
	backend := getEnv("SNAPSHOT_BACKEND", cart.BackendKV)
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	jsDir := getEnv("JS_STORAGE_DIR", "/tmp/storefront-cart")
	sessionSecret := getEnv("SESSION_SECRET", session.DefaultConfig().SecretKey)
	sessionTTL := getEnvDuration("SESSION_TTL", 24*time.Hour)
	idleTimeout := getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	feedAddr := getEnv("STOCK_FEED_REDIS_ADDR", "")
	feedChannel := getEnv("STOCK_FEED_CHANNEL", stockfeed.DefaultChannel)
	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	rateLimit := getEnvInt("RATE_LIMIT_PER_MINUTE", 300)
	seedCatalog := getEnvBool("SEED_CATALOG", true)
	adminEmail := getEnv("ADMIN_EMAIL", "")
	adminPassword := getEnv("ADMIN_PASSWORD", "")
	adminCost := getEnvInt("ADMIN_BCRYPT_COST", admin.DefaultBcryptCost)
	adminSecret := getEnv("ADMIN_SECRET", admin.DefaultTokenConfig().SecretKey)
	adminTTL := getEnvDuration("ADMIN_TOKEN_TTL", admin.DefaultTokenConfig().TTL)

	logLevel := mono.LogLevelInfo
	if strings.EqualFold(getEnv("LOG_LEVEL", "info"), "error") {
		logLevel = mono.LogLevelError
	}

	if sessionSecret == session.DefaultConfig().SecretKey {
		log.Println("Warning: SESSION_SECRET not set, using the development secret")
	}
	if adminSecret == admin.DefaultTokenConfig().SecretKey {
		log.Println("Warning: ADMIN_SECRET not set, using the development secret")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(jsDir),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Snapshot storage plugins. The cart module picks one by SNAPSHOT_BACKEND.
	kvPlugin, err := kvjetstream.New(kvjetstream.Config{
		Buckets: []kvjetstream.BucketConfig{
			{
				Name:        cart.BucketName,
				Description: "Cart session snapshots",
				Storage:     kvjetstream.FileStorage,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create kv plugin: %v", err)
	}
	if err := app.RegisterPlugin(kvPlugin, "kv"); err != nil {
		log.Fatalf("Failed to register kv plugin: %v", err)
	}
	if backend == cart.BackendRedis {
		if err := app.RegisterPlugin(rediskv.NewPluginModule(redisAddr), "redis"); err != nil {
			log.Fatalf("Failed to register redis plugin: %v", err)
		}
	}

	tokens := session.NewTokenManager(session.Config{
		SecretKey: sessionSecret,
		TTL:       sessionTTL,
		Issuer:    session.DefaultConfig().Issuer,
	})

	catalogModule := catalog.NewModule(catalog.Config{DBPath: dbPath, DBDebug: dbDebug, Seed: seedCatalog})
	orderModule := order.NewModule(order.Config{DBPath: dbPath, DBDebug: dbDebug})
	broadcastModule := broadcast.NewModule()
	adminModule := admin.NewModule(admin.Config{
		DBPath:     dbPath,
		DBDebug:    dbDebug,
		Email:      adminEmail,
		Password:   adminPassword,
		BcryptCost: adminCost,
		Token: admin.TokenConfig{
			SecretKey: adminSecret,
			TTL:       adminTTL,
			Issuer:    admin.DefaultTokenConfig().Issuer,
		},
	})
	cartModule := cart.NewModule(cart.Config{
		Backend:     backend,
		IdleTimeout: idleTimeout,
	}, app.Logger().WithModule("cart"))
	apiModule := api.NewModule(api.Config{
		Port:               port,
		CORSAllowedOrigins: corsOrigins,
		RateLimit:          rateLimit,
	})

	// The hub and feed are not exposed via ServiceContainer, so they are
	// injected here.
	cartModule.SetStockFeed(broadcastModule.GetFeed())
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetTokens(tokens)
	apiModule.AddHealthCheck("catalog", catalogModule)
	apiModule.AddHealthCheck("order", orderModule)
	apiModule.AddHealthCheck("cart", cartModule)
	apiModule.AddHealthCheck("broadcast", broadcastModule)
	apiModule.AddHealthCheck("admin", adminModule)

	// Order: independent modules first, then modules with dependencies
	// - catalog: products + stock (ServiceProviderModule + EventEmitterModule)
	// - order: checkout, depends on catalog
	// - broadcast: stock events -> WebSocket hub + cart feed (EventConsumerModule)
	// - cart: session registry and snapshots (UsePluginModule)
	// - admin: operator accounts and admin tokens (ServiceProviderModule)
	// - stockfeed: optional Redis pub/sub bridge
	// - api: Fiber HTTP/WebSocket server, depends on cart, catalog, order and admin
	modules := []mono.Module{catalogModule, orderModule, broadcastModule, cartModule, adminModule}
	if feedAddr != "" {
		feedModule := stockfeed.NewModule(feedAddr, feedChannel)
		apiModule.AddHealthCheck("stockfeed", feedModule)
		modules = append(modules, feedModule)
	}
	modules = append(modules, apiModule)

	for _, m := range modules {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register %s module: %v", m.Name(), err)
		}
	}

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(port, backend, feedAddr, feedChannel)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port, backend, feedAddr, feedChannel string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Cart snapshots: %s backend", backend)
	if feedAddr != "" {
		log.Printf("External stock feed: redis://%s channel %q", feedAddr, feedChannel)
	} else {
		log.Println("External stock feed: disabled (set STOCK_FEED_REDIS_ADDR)")
	}
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                     - Health check")
	log.Println("  POST   /api/v1/sessions            - Create a cart session")
	log.Println("  DELETE /api/v1/sessions            - Reset the session's cart")
	log.Println("  GET    /api/v1/products            - List products")
	log.Println("  GET    /api/v1/products/:id        - Get product")
	log.Println("  GET    /api/v1/orders/:code        - Get order (own session or admin)")
	log.Println("")
	log.Println("Admin Endpoints (Authorization: Bearer <admin token>):")
	log.Println("  POST   /api/v1/admin/login         - Sign in (no token)")
	log.Println("  PUT    /api/v1/products/:id/stock  - Set product stock")
	log.Println("  GET    /api/v1/orders              - List orders (?status=&origin=)")
	log.Println("  PUT    /api/v1/orders/:code/status - Change order status")
	log.Println("")
	log.Println("Cart Endpoints (Authorization: Bearer <session token>):")
	log.Println("  GET    /api/v1/cart                - Current cart")
	log.Println("  POST   /api/v1/cart/items          - Add item")
	log.Println("  PUT    /api/v1/cart/items/:id      - Set item quantity")
	log.Println("  DELETE /api/v1/cart/items/:id      - Remove item")
	log.Println("  POST   /api/v1/cart/toggle|open|close - Panel state")
	log.Println("  DELETE /api/v1/cart               - Clear cart")
	log.Println("  POST   /api/v1/cart/checkout       - Place order")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<session token>):", port)
	log.Println("  Pushes stockUpdated to every client, orderPlaced to the session's clients")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
