package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// StockUpdatedEvent is emitted whenever a product's available stock changes.
// Revision increases per product; zero means the source does not version stock.
type StockUpdatedEvent struct {
	ProductID string    `json:"product_id"`
	Stock     int       `json:"stock"`
	Revision  uint64    `json:"revision,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stock change events. The catalog emits its own changes; the stock feed
// bridge re-emits changes reported by an external backend.
var (
	StockUpdatedV1 = helper.EventDefinition[StockUpdatedEvent](
		"catalog",
		"StockUpdated",
		"v1",
	)

	ExternalStockUpdatedV1 = helper.EventDefinition[StockUpdatedEvent](
		"stockfeed",
		"StockUpdated",
		"v1",
	)
)
