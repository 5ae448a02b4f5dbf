package stockfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront-cart/events"
)

// ErrMalformedMessage is returned for payloads that are not stock updates.
var ErrMalformedMessage = errors.New("malformed stock message")

// message is the wire format published by the inventory backend.
type message struct {
	ProductID string `json:"productId"`
	Stock     *int   `json:"stock"`
	Revision  uint64 `json:"revision,omitempty"`
}

// decode parses one pub/sub payload.
func decode(payload string, now time.Time) (events.StockUpdatedEvent, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return events.StockUpdatedEvent{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.ProductID == "" {
		return events.StockUpdatedEvent{}, fmt.Errorf("%w: missing productId", ErrMalformedMessage)
	}
	if m.Stock == nil {
		return events.StockUpdatedEvent{}, fmt.Errorf("%w: missing stock", ErrMalformedMessage)
	}
	if *m.Stock < 0 {
		return events.StockUpdatedEvent{}, fmt.Errorf("%w: negative stock", ErrMalformedMessage)
	}
	return events.StockUpdatedEvent{
		ProductID: m.ProductID,
		Stock:     *m.Stock,
		Revision:  m.Revision,
		Timestamp: now,
	}, nil
}
