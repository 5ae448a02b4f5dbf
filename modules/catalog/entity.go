package catalog

import (
	"time"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/shopspring/decimal"
)

// Product is a catalog row. Revision grows by one on every stock change.
type Product struct {
	ID        string          `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Name      string          `gorm:"size:120;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	Active    bool            `gorm:"not null" json:"active"`
	ImageURL  string          `gorm:"size:500" json:"image_url"`
	Revision  uint64          `gorm:"not null;default:0" json:"revision"`
}

// TableName returns the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// ToCart returns the denormalized copy a cart line holds.
func (p *Product) ToCart() cart.Product {
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Stock:    p.Stock,
		Active:   p.Active,
		ImageURL: p.ImageURL,
	}
}
