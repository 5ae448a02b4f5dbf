package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/example/storefront-cart/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the catalog module.
type Config struct {
	DBPath  string
	DBDebug bool
	Seed    bool
}

// CatalogModule serves the product catalog from GORM + SQLite.
type CatalogModule struct {
	config   Config
	db       *gorm.DB
	repo     *Repository
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*CatalogModule)(nil)
var _ mono.ServiceProviderModule = (*CatalogModule)(nil)
var _ mono.EventBusAwareModule = (*CatalogModule)(nil)
var _ mono.EventEmitterModule = (*CatalogModule)(nil)
var _ mono.HealthCheckableModule = (*CatalogModule)(nil)

// NewModule creates a new CatalogModule.
func NewModule(config Config) *CatalogModule {
	if config.DBPath == "" {
		config.DBPath = "storefront.db"
	}
	return &CatalogModule{config: config}
}

// Name returns the module name.
func (m *CatalogModule) Name() string {
	return "catalog"
}

// SetEventBus receives the EventBus from the framework.
func (m *CatalogModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *CatalogModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.StockUpdatedV1.ToBase(),
	}
}

// Health performs a health check on the catalog database.
func (m *CatalogModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.config.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *CatalogModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.listProducts,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGet, json.Unmarshal, json.Marshal, m.getProduct,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSetStock, json.Unmarshal, json.Marshal, m.setStock,
	); err != nil {
		return fmt.Errorf("failed to register set-stock service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceReserve, json.Unmarshal, json.Marshal, m.reserve,
	); err != nil {
		return fmt.Errorf("failed to register reserve service: %w", err)
	}

	log.Printf("[catalog] Registered services: services.catalog.{list,get,set-stock,reserve}")
	return nil
}

// Start opens the database, runs migrations and seeds an empty catalog.
func (m *CatalogModule) Start(ctx context.Context) error {
	log.Printf("[catalog] Connecting to SQLite database: %s", m.config.DBPath)

	logLevel := logger.Warn
	if m.config.DBDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&Product{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)
	m.service = NewService(m.repo, m.publishStockUpdated)

	if m.config.Seed {
		if err := Seed(ctx, m.repo); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	log.Println("[catalog] Module started successfully")
	return nil
}

// Stop closes the database connection.
func (m *CatalogModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[catalog] Database connection closed")
	return nil
}

func (m *CatalogModule) publishStockUpdated(event events.StockUpdatedEvent) error {
	if m.eventBus == nil {
		return errors.New("event bus not set")
	}
	return events.StockUpdatedV1.Publish(m.eventBus, event, nil)
}

func (m *CatalogModule) listProducts(ctx context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	products, err := m.service.List(ctx, req.IncludeInactive)
	if err != nil {
		return ListResponse{}, err
	}
	out := make([]cart.Product, len(products))
	for i, p := range products {
		out[i] = p.ToCart()
	}
	return ListResponse{Products: out, Total: len(out)}, nil
}

func (m *CatalogModule) getProduct(ctx context.Context, req GetRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.service.Get(ctx, req.ID)
	return productResponse(p, err)
}

func (m *CatalogModule) setStock(ctx context.Context, req SetStockRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.service.SetStock(ctx, req.ID, req.Stock)
	return productResponse(p, err)
}

func (m *CatalogModule) reserve(ctx context.Context, req ReserveRequest, _ *mono.Msg) (ReserveResponse, error) {
	products, err := m.service.Reserve(ctx, req.Lines)
	if err != nil {
		var shortage *ShortageError
		switch {
		case errors.As(err, &shortage):
			return ReserveResponse{Shortages: shortage.Shortages, Error: CodeInsufficientStock}, nil
		case errors.Is(err, ErrInvalidQuantity):
			return ReserveResponse{Error: CodeInvalidQuantity, Message: err.Error()}, nil
		}
		return ReserveResponse{}, err
	}

	out := make([]cart.Product, len(products))
	for i, p := range products {
		out[i] = p.ToCart()
	}
	return ReserveResponse{Products: out}, nil
}

func productResponse(p *Product, err error) (ProductResponse, error) {
	switch {
	case errors.Is(err, ErrNotFound):
		return ProductResponse{Error: CodeNotFound}, nil
	case errors.Is(err, ErrInvalidStock):
		return ProductResponse{Error: CodeInvalidStock}, nil
	case err != nil:
		return ProductResponse{}, err
	}
	cp := p.ToCart()
	return ProductResponse{Product: &cp, Revision: p.Revision}, nil
}

// Service returns the catalog service.
func (m *CatalogModule) Service() *Service {
	return m.service
}
