package broadcast

import (
	"context"
	"fmt"
	"log"

	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/example/storefront-cart/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// BroadcastModule relays stock and order events to WebSocket clients and
// to the in-process stock feed.
type BroadcastModule struct {
	hub       *Hub
	feed      *Feed
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub:  NewHub(),
		feed: NewFeed(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the hub loop.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the hub and waits for it to exit.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"feed_subscribers":  m.feed.Subscribers(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.StockUpdatedV1, m.handleCatalogStock, m,
	); err != nil {
		return fmt.Errorf("failed to register StockUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ExternalStockUpdatedV1, m.handleExternalStock, m,
	); err != nil {
		return fmt.Errorf("failed to register external StockUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.OrderPlacedV1, m.handleOrderPlaced, m,
	); err != nil {
		return fmt.Errorf("failed to register OrderPlaced consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: catalog.StockUpdated, stockfeed.StockUpdated, order.OrderPlaced")
	return nil
}

func (m *BroadcastModule) handleCatalogStock(_ context.Context, event events.StockUpdatedEvent, _ *mono.Msg) error {
	m.relayStock(domain.SourceCatalog, event)
	return nil
}

func (m *BroadcastModule) handleExternalStock(_ context.Context, event events.StockUpdatedEvent, _ *mono.Msg) error {
	m.relayStock(domain.SourceExternal, event)
	return nil
}

// relayStock forwards a stock change to the cart feed and every WebSocket client.
func (m *BroadcastModule) relayStock(source string, event events.StockUpdatedEvent) {
	log.Printf("[broadcast] Stock of %s is now %d (%s revision %d)", event.ProductID, event.Stock, source, event.Revision)

	m.feed.Publish(domain.StockUpdate{
		Source:    source,
		ProductID: event.ProductID,
		Stock:     event.Stock,
		Revision:  event.Revision,
	})
	m.hub.Broadcast(StockUpdatedMessage{
		Type:      "stockUpdated",
		ProductID: event.ProductID,
		Stock:     event.Stock,
	})
}

func (m *BroadcastModule) handleOrderPlaced(_ context.Context, event events.OrderPlacedEvent, _ *mono.Msg) error {
	if event.SessionID == "" {
		return nil
	}
	m.hub.SendToSession(event.SessionID, OrderPlacedMessage{
		Type:      "orderPlaced",
		OrderCode: event.OrderCode,
		Total:     event.Total,
	})
	return nil
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// GetFeed returns the stock feed cart sessions subscribe to.
func (m *BroadcastModule) GetFeed() *Feed {
	return m.feed
}

// StockUpdatedMessage is pushed to every WebSocket client on a stock change.
type StockUpdatedMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

// OrderPlacedMessage is pushed to the clients of the session that checked out.
type OrderPlacedMessage struct {
	Type      string `json:"type"`
	OrderCode string `json:"orderCode"`
	Total     string `json:"total"`
}
