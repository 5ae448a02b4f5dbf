package stockfeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/storefront-cart/events"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "stock-updates"

// Module bridges an external Redis stock channel onto the event bus.
type Module struct {
	addr     string
	channel  string
	client   *redis.Client
	pubsub   *redis.PubSub
	eventBus mono.EventBus
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	received int
	skipped  int
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a stock feed bridge for the Redis server at addr.
func NewModule(addr, channel string) *Module {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Module{addr: addr, channel: channel}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "stockfeed"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ExternalStockUpdatedV1.ToBase(),
	}
}

// Start connects to Redis and subscribes to the stock channel.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:        m.addr,
		DialTimeout: 5 * time.Second,
	})
	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.pubsub = m.client.Subscribe(runCtx, m.channel)
	// Wait for the subscription to be confirmed.
	if _, err := m.pubsub.Receive(ctx); err != nil {
		cancel()
		_ = m.pubsub.Close()
		_ = m.client.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", m.channel, err)
	}

	m.wg.Add(1)
	go m.run(runCtx, m.pubsub.Channel())

	log.Printf("[stockfeed] Subscribed to %s on %s", m.channel, m.addr)
	return nil
}

// Stop unsubscribes and closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	var errs []error
	if m.pubsub != nil {
		errs = append(errs, m.pubsub.Close())
	}
	m.wg.Wait()
	if m.client != nil {
		errs = append(errs, m.client.Close())
	}
	log.Println("[stockfeed] Module stopped")
	return errors.Join(errs...)
}

// Health reports the Redis connection and message counters.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}

	m.mu.Lock()
	received, skipped := m.received, m.skipped
	m.mu.Unlock()

	return mono.HealthStatus{
		Healthy: true,
		Message: "subscribed",
		Details: map[string]any{
			"channel":  m.channel,
			"received": received,
			"skipped":  skipped,
		},
	}
}

func (m *Module) run(ctx context.Context, ch <-chan *redis.Message) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.handle(msg.Payload)
		}
	}
}

// handle publishes one payload; malformed payloads are logged and skipped.
func (m *Module) handle(payload string) {
	event, err := decode(payload, time.Now())

	m.mu.Lock()
	m.received++
	if err != nil {
		m.skipped++
	}
	m.mu.Unlock()

	if err != nil {
		log.Printf("[stockfeed] Skipping message: %v", err)
		return
	}
	if m.eventBus == nil {
		return
	}
	if err := events.ExternalStockUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[stockfeed] Failed to publish StockUpdated for %s: %v", event.ProductID, err)
	}
}
