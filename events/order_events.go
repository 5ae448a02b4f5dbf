package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// OrderPlacedEvent is emitted after an order has been persisted.
type OrderPlacedEvent struct {
	OrderCode  string    `json:"order_code"`
	SessionID  string    `json:"session_id,omitempty"`
	BuyerEmail string    `json:"buyer_email"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	Timestamp  time.Time `json:"timestamp"`
}

var OrderPlacedV1 = helper.EventDefinition[OrderPlacedEvent](
	"order",
	"OrderPlaced",
	"v1",
)
