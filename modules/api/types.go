package api

import (
	"github.com/example/storefront-cart/domain/cart"
	cartmod "github.com/example/storefront-cart/modules/cart"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/example/storefront-cart/modules/order"
)

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// SessionResponse carries a new cart session and its bearer token.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// ProductListResponse is the API response for listing products.
type ProductListResponse struct {
	Products []cart.Product `json:"products"`
	Total    int            `json:"total"`
}

// AdminLoginRequest signs an admin in.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginResponse carries an admin bearer token.
type AdminLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Email       string `json:"email"`
}

// OrderListResponse is the API response for listing orders.
type OrderListResponse struct {
	Orders []order.Order `json:"orders"`
	Total  int           `json:"total"`
}

// UpdateOrderStatusRequest moves an order to a new status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// SetStockRequest replaces a product's stock.
type SetStockRequest struct {
	Stock *int `json:"stock"`
}

// AddItemRequest adds a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest sets the quantity of a cart line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// StockErrorResponse is returned when the cart cannot take more of a product.
type StockErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ProductID string `json:"product_id"`
	Remaining int    `json:"remaining"`
}

// CheckoutRequest submits the current cart as an order.
type CheckoutRequest struct {
	Buyer         order.Buyer `json:"buyer"`
	PaymentMethod string      `json:"payment_method"`
	Origin        string      `json:"origin,omitempty"`
}

// CheckoutResponse is the placed order plus the cart after checkout.
type CheckoutResponse struct {
	Order *order.Order          `json:"order"`
	Cart  *cartmod.CartResponse `json:"cart"`
}

// ShortageResponse lists the lines checkout could not cover.
type ShortageResponse struct {
	Error     string             `json:"error"`
	Message   string             `json:"message"`
	Shortages []catalog.Shortage `json:"shortages"`
}

// WSMessage is the first frame sent on a WebSocket connection.
type WSMessage struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId,omitempty"`
}
