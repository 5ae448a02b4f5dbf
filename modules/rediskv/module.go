// Package rediskv exposes a Redis-backed mono storage.Storage as a plugin.
package rediskv

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

const healthKey = "__health_check__"

// PluginModule provides Redis key/value storage as a mono plugin module.
// Plugins start before and stop after regular modules.
type PluginModule struct {
	container types.ServiceContainer
	storage   storage.Storage
	redisAddr string
	poolSize  int
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a plugin for the Redis server at redisAddr.
func NewPluginModule(redisAddr string) *PluginModule {
	return &PluginModule{
		redisAddr: redisAddr,
		poolSize:  50,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "rediskv"
}

// Start connects to Redis.
func (m *PluginModule) Start(_ context.Context) error {
	host, port := parseRedisAddr(m.redisAddr)
	m.storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: m.poolSize,
	})
	log.Printf("[rediskv] Connected to Redis at %s", m.redisAddr)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.storage == nil {
		return nil
	}
	if err := m.storage.Close(); err != nil {
		return fmt.Errorf("failed to close redis storage: %w", err)
	}
	log.Println("[rediskv] Plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the storage consumers read and write through. It is nil
// until the plugin has started.
func (m *PluginModule) Port() storage.Storage {
	return m.storage
}

// Health checks Redis with a read of a key that never exists.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.storage == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "storage not initialized",
		}
	}

	if _, err := m.storage.GetWithContext(ctx, healthKey); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.redisAddr,
		},
	}
}

// parseRedisAddr splits "host:port", falling back to 127.0.0.1:6379.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
