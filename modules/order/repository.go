package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no order has the requested code.
	ErrNotFound = errors.New("order not found")
	// ErrOrderCancelled is returned when changing the status of a cancelled order.
	ErrOrderCancelled = errors.New("order is cancelled")
)

// Repository persists orders and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves an order together with its items.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindByCode loads an order and its items.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// ListFilter narrows an order listing. Empty fields match everything.
type ListFilter struct {
	Status string `json:"status,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// List returns orders matching filter, newest first, with their items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Origin != "" {
		query = query.Where("origin = ?", filter.Origin)
	}

	var orders []Order
	if err := query.Order("created_at DESC").Order("code").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of the order with code. The change is refused
// with ErrOrderCancelled once the order is cancelled.
func (r *Repository) UpdateStatus(ctx context.Context, code, status string) (*Order, error) {
	var updated *Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.Preload("Items").First(&o, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find order: %w", err)
		}
		if o.Status == StatusCancelled && status != StatusCancelled {
			return ErrOrderCancelled
		}
		if o.Status != status {
			if err := tx.Model(&o).Update("status", status).Error; err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
			o.Status = status
		}
		updated = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
