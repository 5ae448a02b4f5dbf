package order

import (
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/shopspring/decimal"
)

// Service names registered by the order module.
const (
	ServicePlace        = "place"
	ServiceGet          = "get"
	ServiceList         = "list"
	ServiceUpdateStatus = "update-status"
)

// Error codes carried in service responses.
const (
	CodeInvalid           = "invalid_order"
	CodeInsufficientStock = "insufficient_stock"
	CodeNotFound          = "not_found"
	CodeCancelled         = "order_cancelled"
)

// Buyer holds the contact and delivery details of a checkout.
type Buyer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// LineRequest is one product of a checkout. UnitPrice is what the buyer saw;
// the catalog price at reservation time is what gets charged.
type LineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlaceRequest submits a checkout.
type PlaceRequest struct {
	SessionID     string        `json:"session_id,omitempty"`
	Buyer         Buyer         `json:"buyer"`
	PaymentMethod string        `json:"payment_method"`
	Origin        string        `json:"origin,omitempty"`
	Lines         []LineRequest `json:"lines"`
}

// GetRequest looks an order up by code.
type GetRequest struct {
	Code string `json:"code"`
}

// OrderResponse carries an order or the reason it could not be placed.
type OrderResponse struct {
	Order     *Order             `json:"order,omitempty"`
	Shortages []catalog.Shortage `json:"shortages,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// ListRequest lists orders for the back office.
type ListRequest struct {
	Filter ListFilter `json:"filter"`
}

// ListResponse carries a page of orders.
type ListResponse struct {
	Orders  []Order `json:"orders"`
	Error   string  `json:"error,omitempty"`
	Message string  `json:"message,omitempty"`
}

// UpdateStatusRequest changes the status of an order.
type UpdateStatusRequest struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}
