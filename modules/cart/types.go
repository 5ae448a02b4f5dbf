package cart

import (
	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/shopspring/decimal"
)

// Service names registered by the cart module.
const (
	ServiceGet            = "get"
	ServiceAdd            = "add"
	ServiceRemove         = "remove"
	ServiceUpdateQuantity = "update-quantity"
	ServiceToggle         = "toggle"
	ServiceOpen           = "open"
	ServiceClose          = "close"
	ServiceClear          = "clear"
	ServiceReset          = "reset"
)

// Error codes carried in service responses.
const (
	CodeInsufficientStock = "insufficient_stock"
	CodeInactiveProduct   = "inactive_product"
	CodeInvalidSession    = "invalid_session"
	CodeUnavailable       = "unavailable"
)

// SessionRequest addresses a session with no further arguments.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// AddRequest adds a product. With CheckStock set the add is refused when
// the known stock cannot cover it.
type AddRequest struct {
	SessionID  string         `json:"session_id"`
	Product    domain.Product `json:"product"`
	Quantity   int            `json:"quantity"`
	CheckStock bool           `json:"check_stock"`
}

// ItemRequest addresses one line of a session.
type ItemRequest struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

// LineView is a cart line with its subtotal.
type LineView struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartResponse is the state of a session plus its derived values.
type CartResponse struct {
	SessionID  string          `json:"session_id"`
	Items      []LineView      `json:"items"`
	IsOpen     bool            `json:"is_open"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
	OverStock  []string        `json:"over_stock,omitempty"`
	Remaining  int             `json:"remaining,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// newCartResponse renders a state for transport.
func newCartResponse(sessionID string, s domain.State) CartResponse {
	items := make([]LineView, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, LineView{
			Product:  l.Product,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal(),
		})
	}

	var over []string
	for _, l := range s.ExceedsStock() {
		over = append(over, l.Product.ID)
	}

	return CartResponse{
		SessionID:  sessionID,
		Items:      items,
		IsOpen:     s.IsOpen,
		Total:      s.Total(),
		ItemsCount: s.ItemsCount(),
		OverStock:  over,
	}
}
