package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout.
const (
	PaymentTransfer = "transfer"
	PaymentCash     = "cash"
	PaymentCard     = "card"
)

// Order statuses. Every order starts pending; cancelled is final.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether status is a known order status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPaid, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// DefaultOrigin is used when a request names no origin.
const DefaultOrigin = "web"

// Order is a placed checkout with its buyer details.
type Order struct {
	ID            string          `gorm:"primarykey;size:36" json:"id"`
	Code          string          `gorm:"uniqueIndex;size:20;not null" json:"code"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	SessionID     string          `gorm:"index;size:36" json:"session_id,omitempty"`
	BuyerName     string          `gorm:"size:120;not null" json:"buyer_name"`
	BuyerEmail    string          `gorm:"size:254;not null" json:"buyer_email"`
	Address       string          `gorm:"size:300;not null" json:"address"`
	Phone         string          `gorm:"size:40;not null" json:"phone"`
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	Origin        string          `gorm:"size:20;not null" json:"origin"`
	Status        string          `gorm:"index;size:20;not null" json:"status"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Items         []Item          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName returns the table name for Order model.
func (Order) TableName() string {
	return "orders"
}

// ItemCount sums the quantities of all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Item is one ordered product. Name and price are copied at checkout.
type Item struct {
	ID        uint            `gorm:"primarykey" json:"-"`
	OrderID   string          `gorm:"index;size:36;not null" json:"-"`
	ProductID string          `gorm:"size:36;not null" json:"product_id"`
	Name      string          `gorm:"size:120" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
}

// TableName returns the table name for Item model.
func (Item) TableName() string {
	return "order_items"
}

// Subtotal returns unit price times quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
