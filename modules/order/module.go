package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/storefront-cart/events"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the order module.
type Config struct {
	DBPath  string
	DBDebug bool
}

// OrderModule places orders against the catalog's stock.
type OrderModule struct {
	config      Config
	db          *gorm.DB
	service     *Service
	catalogPort catalog.CatalogPort
	eventBus    mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*OrderModule)(nil)
var _ mono.ServiceProviderModule = (*OrderModule)(nil)
var _ mono.DependentModule = (*OrderModule)(nil)
var _ mono.EventBusAwareModule = (*OrderModule)(nil)
var _ mono.EventEmitterModule = (*OrderModule)(nil)
var _ mono.HealthCheckableModule = (*OrderModule)(nil)

// NewModule creates a new OrderModule.
func NewModule(config Config) *OrderModule {
	if config.DBPath == "" {
		config.DBPath = "storefront.db"
	}
	return &OrderModule{config: config}
}

// Name returns the module name.
func (m *OrderModule) Name() string {
	return "order"
}

// Dependencies returns the modules this module depends on.
func (m *OrderModule) Dependencies() []string {
	return []string{"catalog"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *OrderModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "catalog" {
		m.catalogPort = catalog.NewCatalogAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *OrderModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *OrderModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.OrderPlacedV1.ToBase(),
	}
}

// Health pings the order database.
func (m *OrderModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *OrderModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServicePlace, json.Unmarshal, json.Marshal, m.placeOrder,
	); err != nil {
		return fmt.Errorf("failed to register place service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGet, json.Unmarshal, json.Marshal, m.getOrder,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.listOrders,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateStatus, json.Unmarshal, json.Marshal, m.updateStatus,
	); err != nil {
		return fmt.Errorf("failed to register update-status service: %w", err)
	}

	log.Printf("[order] Registered services: services.order.{place,get,list,update-status}")
	return nil
}

// Start opens the database and runs migrations.
func (m *OrderModule) Start(_ context.Context) error {
	if m.catalogPort == nil {
		return errors.New("catalog dependency not set")
	}

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

	if err := m.db.AutoMigrate(&Order{}, &Item{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.service, err = NewService(NewRepository(m.db), m.catalogPort, m.publishOrderPlaced)
	if err != nil {
		return err
	}

	log.Println("[order] Module started successfully")
	return nil
}

// Stop closes the database connection.
func (m *OrderModule) Stop(_ context.Context) error {
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
	log.Println("[order] Database connection closed")
	return nil
}

func (m *OrderModule) publishOrderPlaced(event events.OrderPlacedEvent) error {
	if m.eventBus == nil {
		return errors.New("event bus not set")
	}
	return events.OrderPlacedV1.Publish(m.eventBus, event, nil)
}

func (m *OrderModule) placeOrder(ctx context.Context, req PlaceRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.Place(ctx, req)
	return orderResponse(o, err)
}

func (m *OrderModule) getOrder(ctx context.Context, req GetRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.Get(ctx, req.Code)
	return orderResponse(o, err)
}

func (m *OrderModule) listOrders(ctx context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	orders, err := m.service.List(ctx, req.Filter)
	var invalid *ValidationError
	switch {
	case errors.As(err, &invalid):
		return ListResponse{Orders: []Order{}, Error: CodeInvalid, Message: invalid.Error()}, nil
	case err != nil:
		return ListResponse{}, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return ListResponse{Orders: orders}, nil
}

func (m *OrderModule) updateStatus(ctx context.Context, req UpdateStatusRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.UpdateStatus(ctx, req.Code, req.Status)
	return orderResponse(o, err)
}

// orderResponse moves domain failures into the response body.
func orderResponse(o *Order, err error) (OrderResponse, error) {
	var shortage *catalog.ShortageError
	var invalid *ValidationError
	switch {
	case errors.As(err, &shortage):
		return OrderResponse{
			Shortages: shortage.Shortages,
			Error:     CodeInsufficientStock,
			Message:   shortage.Error(),
		}, nil
	case errors.As(err, &invalid):
		return OrderResponse{Error: CodeInvalid, Message: invalid.Error()}, nil
	case errors.Is(err, ErrNotFound):
		return OrderResponse{Error: CodeNotFound, Message: err.Error()}, nil
	case errors.Is(err, ErrOrderCancelled):
		return OrderResponse{Error: CodeCancelled, Message: err.Error()}, nil
	case err != nil:
		return OrderResponse{}, err
	}
	return OrderResponse{Order: o}, nil
}
