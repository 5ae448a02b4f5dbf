package admin

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrAdminNotFound is returned when no admin has the requested email.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminExists is returned when an email is already registered.
	ErrAdminExists = errors.New("admin with this email already exists")
)

// Repository persists admin accounts.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new admin repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new admin.
func (r *Repository) Create(ctx context.Context, a *Admin) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAdminExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// FindByEmail loads an admin by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	if err := r.db.WithContext(ctx).First(&a, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return &a, nil
}

// UpdatePassword replaces the stored hash for an admin.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	err := r.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).Update("password_hash", hash).Error
	if err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
	}
	return nil
}

// Count returns the number of admins.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Admin{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}
