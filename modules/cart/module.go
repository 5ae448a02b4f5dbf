package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/example/storefront-cart/modules/rediskv"
	"github.com/example/storefront-cart/modules/snapshot"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// Snapshot backends.
const (
	BackendKV     = "kv"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// BucketName is the kv-jetstream bucket holding cart snapshots.
const BucketName = "carts"

// Config configures the cart module.
type Config struct {
	Backend     string
	IdleTimeout time.Duration
}

// Module owns the cart sessions of the process and serves them over the
// service container.
type Module struct {
	config      Config
	kv          *kvjetstream.PluginModule
	redis       *rediskv.PluginModule
	feed        StockFeed
	registry    *Registry
	logger      types.Logger
	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new cart module.
func NewModule(config Config, logger types.Logger) *Module {
	if config.Backend == "" {
		config.Backend = BackendKV
	}
	return &Module{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cart"
}

// SetPlugin receives the snapshot storage plugins from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "kv":
		kv, ok := plugin.(*kvjetstream.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for kv",
				"alias", alias,
				"expected", "*kvjetstream.PluginModule")
			return
		}
		m.kv = kv
		m.logger.Info("Received KV plugin", "alias", alias)
	case "redis":
		r, ok := plugin.(*rediskv.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for redis",
				"alias", alias,
				"expected", "*rediskv.PluginModule")
			return
		}
		m.redis = r
		m.logger.Info("Received Redis plugin", "alias", alias)
	}
}

// SetStockFeed sets the feed sessions reconcile against (called from main.go).
func (m *Module) SetStockFeed(feed StockFeed) {
	m.feed = feed
}

// Start builds the snapshot store and the session registry.
func (m *Module) Start(_ context.Context) error {
	backend, err := m.backend()
	if err != nil {
		return err
	}

	store := snapshot.NewStore(backend, m.logger)
	m.registry = NewRegistry(store, m.feed, m.logger)

	if m.config.IdleTimeout > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		m.stopJanitor = cancel
		m.janitorDone = make(chan struct{})
		go func() {
			defer close(m.janitorDone)
			m.registry.RunJanitor(ctx, m.config.IdleTimeout)
		}()
	}

	m.logger.Info("Cart module started",
		"backend", m.config.Backend,
		"idleTimeout", m.config.IdleTimeout.String(),
		"reconciliation", m.feed != nil)
	return nil
}

func (m *Module) backend() (snapshot.Backend, error) {
	switch m.config.Backend {
	case BackendKV:
		if m.kv == nil {
			return nil, fmt.Errorf("required plugin 'kv' not registered")
		}
		bucket := m.kv.Bucket(BucketName)
		if bucket == nil {
			return nil, fmt.Errorf("bucket '%s' not found in KV plugin", BucketName)
		}
		return snapshot.NewKVBackend(bucket), nil
	case BackendRedis:
		if m.redis == nil || m.redis.Port() == nil {
			return nil, fmt.Errorf("required plugin 'redis' not registered")
		}
		return snapshot.NewStorageBackend(m.redis.Port()), nil
	case BackendMemory:
		return snapshot.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", m.config.Backend)
	}
}

// Stop flushes open sessions and releases their listeners.
func (m *Module) Stop(ctx context.Context) error {
	if m.stopJanitor != nil {
		m.stopJanitor()
		<-m.janitorDone
	}
	if m.registry == nil {
		return nil
	}

	open := m.registry.Len()
	if err := m.registry.Flush(ctx); err != nil {
		m.logger.Warn("Cart flush interrupted", "error", err)
	}
	m.registry.CloseAll()

	m.logger.Info("Cart module stopped", "flushedSessions", open)
	return nil
}

// Health reports the number of open sessions.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.registry == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "registry not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend":       m.config.Backend,
			"open_sessions": m.registry.Len(),
		},
	}
}

// Registry returns the session registry.
func (m *Module) Registry() *Registry {
	return m.registry
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name    string
		handler func(context.Context, SessionRequest, *mono.Msg) (CartResponse, error)
	}{
		{ServiceGet, m.handleGet},
		{ServiceToggle, m.sessionAction(domain.ToggleOpen{})},
		{ServiceOpen, m.sessionAction(domain.OpenPanel{})},
		{ServiceClose, m.sessionAction(domain.CloseOpen{})},
		{ServiceClear, m.sessionAction(domain.Clear{})},
		{ServiceReset, m.handleReset},
	}
	for _, svc := range services {
		if err := helper.RegisterTypedRequestReplyService(
			container, svc.name, json.Unmarshal, json.Marshal, svc.handler,
		); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAdd, json.Unmarshal, json.Marshal, m.handleAdd,
	); err != nil {
		return fmt.Errorf("failed to register add service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRemove, json.Unmarshal, json.Marshal, m.handleRemove,
	); err != nil {
		return fmt.Errorf("failed to register remove service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateQuantity, json.Unmarshal, json.Marshal, m.handleUpdateQuantity,
	); err != nil {
		return fmt.Errorf("failed to register update-quantity service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "services.cart.{get,add,remove,update-quantity,toggle,open,close,clear,reset}")
	return nil
}

func (m *Module) open(ctx context.Context, sessionID string) (*Session, *CartResponse) {
	s, err := m.registry.Open(ctx, sessionID)
	if err != nil {
		code := CodeInvalidSession
		if errors.Is(err, ErrSnapshotUnavailable) {
			code = CodeUnavailable
		}
		return nil, &CartResponse{SessionID: sessionID, Error: code, Message: err.Error()}
	}
	return s, nil
}

func (m *Module) handleGet(ctx context.Context, req SessionRequest, _ *mono.Msg) (CartResponse, error) {
	s, failed := m.open(ctx, req.SessionID)
	if failed != nil {
		return *failed, nil
	}
	return newCartResponse(s.ID(), s.State()), nil
}

func (m *Module) sessionAction(a domain.Action) func(context.Context, SessionRequest, *mono.Msg) (CartResponse, error) {
	return func(ctx context.Context, req SessionRequest, _ *mono.Msg) (CartResponse, error) {
		s, failed := m.open(ctx, req.SessionID)
		if failed != nil {
			return *failed, nil
		}
		return newCartResponse(s.ID(), s.Dispatch(ctx, a)), nil
	}
}

func (m *Module) handleReset(ctx context.Context, req SessionRequest, _ *mono.Msg) (CartResponse, error) {
	if req.SessionID == "" {
		return CartResponse{Error: CodeInvalidSession, Message: ErrInvalidSessionID.Error()}, nil
	}
	m.registry.Reset(ctx, req.SessionID)
	return newCartResponse(req.SessionID, domain.Empty()), nil
}

func (m *Module) handleAdd(ctx context.Context, req AddRequest, _ *mono.Msg) (CartResponse, error) {
	s, failed := m.open(ctx, req.SessionID)
	if failed != nil {
		return *failed, nil
	}

	if req.CheckStock {
		if err := s.CanAdd(req.Product, req.Quantity); err != nil {
			resp := newCartResponse(s.ID(), s.State())
			resp.Remaining = s.Remaining(req.Product)
			resp.Message = err.Error()
			switch {
			case errors.Is(err, ErrInactiveProduct):
				resp.Error = CodeInactiveProduct
			default:
				resp.Error = CodeInsufficientStock
			}
			return resp, nil
		}
	}

	return newCartResponse(s.ID(), s.AddToCart(ctx, req.Product, req.Quantity)), nil
}

func (m *Module) handleRemove(ctx context.Context, req ItemRequest, _ *mono.Msg) (CartResponse, error) {
	s, failed := m.open(ctx, req.SessionID)
	if failed != nil {
		return *failed, nil
	}
	return newCartResponse(s.ID(), s.RemoveFromCart(ctx, req.ProductID)), nil
}

func (m *Module) handleUpdateQuantity(ctx context.Context, req ItemRequest, _ *mono.Msg) (CartResponse, error) {
	s, failed := m.open(ctx, req.SessionID)
	if failed != nil {
		return *failed, nil
	}
	return newCartResponse(s.ID(), s.UpdateQuantity(ctx, req.ProductID, req.Quantity)), nil
}
