package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a product is not found.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is wrapped by ShortageError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStock is returned for negative stock values.
	ErrInvalidStock = errors.New("stock must not be negative")
	// ErrInvalidQuantity is returned when a reservation line asks for less than one unit.
	ErrInvalidQuantity = errors.New("reserved quantity must be at least 1")
)

// ReserveLine asks for Quantity units of a product.
type ReserveLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Shortage describes one line a reservation could not cover.
type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ShortageError lists every line of a failed reservation.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", s.ProductID, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *ShortageError) Unwrap() error {
	return ErrInsufficientStock
}

// Repository provides access to product storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new product.
func (r *Repository) Create(ctx context.Context, p *Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID retrieves a product by its ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*Product, error) {
	return findByID(r.db.WithContext(ctx), id)
}

func findByID(db *gorm.DB, id string) (*Product, error) {
	var p Product
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

// List returns products ordered by name, active ones only unless includeInactive.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]*Product, error) {
	var products []*Product
	q := r.db.WithContext(ctx).Order("name")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Count returns the number of products.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// SetStock replaces a product's stock and bumps its revision.
func (r *Repository) SetStock(ctx context.Context, id string, stock int) (*Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	var updated *Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findByID(tx, id)
		if err != nil {
			return err
		}
		p.Stock = stock
		p.Revision++
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reserve decrements the stock of every line in one transaction. If any line
// cannot be covered nothing changes and a *ShortageError is returned. Lines
// asking for less than one unit fail the whole call with ErrInvalidQuantity.
func (r *Repository) Reserve(ctx context.Context, lines []ReserveLine) ([]*Product, error) {
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s requested %d", ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
	}

	var updated []*Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := make([]*Product, 0, len(lines))
		var shortages []Shortage

		for _, line := range mergeLines(lines) {
			p, err := findByID(tx, line.ProductID)
			if errors.Is(err, ErrNotFound) {
				shortages = append(shortages, Shortage{ProductID: line.ProductID, Requested: line.Quantity})
				continue
			}
			if err != nil {
				return err
			}
			available := p.Stock
			if !p.Active {
				available = 0
			}
			if line.Quantity > available {
				shortages = append(shortages, Shortage{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: available,
				})
				continue
			}
			p.Stock -= line.Quantity
			p.Revision++
			products = append(products, p)
		}

		if len(shortages) > 0 {
			return &ShortageError{Shortages: shortages}
		}
		for _, p := range products {
			if err := tx.Save(p).Error; err != nil {
				return fmt.Errorf("failed to reserve stock: %w", err)
			}
		}
		updated = products
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(lines []ReserveLine) []ReserveLine {
	index := make(map[string]int, len(lines))
	merged := make([]ReserveLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
