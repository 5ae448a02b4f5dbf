package catalog

import (
	"github.com/example/storefront-cart/domain/cart"
)

// Service names registered by the catalog module.
const (
	ServiceList     = "list"
	ServiceGet      = "get"
	ServiceSetStock = "set-stock"
	ServiceReserve  = "reserve"
)

// Error codes carried in service responses.
const (
	CodeNotFound          = "not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeInvalidStock      = "invalid_stock"
	CodeInvalidQuantity   = "invalid_quantity"
)

// ListRequest is the request for listing products.
type ListRequest struct {
	IncludeInactive bool `json:"include_inactive"`
}

// ListResponse is the response for listing products.
type ListResponse struct {
	Products []cart.Product `json:"products"`
	Total    int            `json:"total"`
}

// GetRequest is the request for getting a product.
type GetRequest struct {
	ID string `json:"id"`
}

// ProductResponse carries one product or a domain error code.
type ProductResponse struct {
	Product  *cart.Product `json:"product,omitempty"`
	Revision uint64        `json:"revision,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SetStockRequest is the request for replacing a product's stock.
type SetStockRequest struct {
	ID    string `json:"id"`
	Stock int    `json:"stock"`
}

// ReserveRequest is the request for taking stock for an order.
type ReserveRequest struct {
	Lines []ReserveLine `json:"lines"`
}

// ReserveResponse lists the updated products or the shortages.
type ReserveResponse struct {
	Products  []cart.Product `json:"products,omitempty"`
	Shortages []Shortage     `json:"shortages,omitempty"`
	Error     string         `json:"error,omitempty"`
	Message   string         `json:"message,omitempty"`
}
