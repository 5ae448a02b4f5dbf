package catalog

import (
	"context"
	"log"
	"time"

	"github.com/example/storefront-cart/events"
	"golang.org/x/sync/singleflight"
)

// Publisher emits stock change events.
type Publisher func(events.StockUpdatedEvent) error

// Service provides catalog operations and announces stock changes.
type Service struct {
	repo    *Repository
	publish Publisher
	sfGroup singleflight.Group
}

// NewService creates a new catalog service.
func NewService(repo *Repository, publish Publisher) *Service {
	return &Service{
		repo:    repo,
		publish: publish,
	}
}

// Get returns a product. Concurrent lookups of the same id share one query.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	val, err, _ := s.sfGroup.Do("product:"+id, func() (any, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	// Callers may modify the result; shared flights must not alias.
	p := *val.(*Product)
	return &p, nil
}

// List returns the catalog.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Product, error) {
	return s.repo.List(ctx, includeInactive)
}

// SetStock replaces a product's stock and announces the change.
func (s *Service) SetStock(ctx context.Context, id string, stock int) (*Product, error) {
	p, err := s.repo.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}
	s.announce(p)
	return p, nil
}

// Reserve takes stock for an order and announces every changed product.
func (s *Service) Reserve(ctx context.Context, lines []ReserveLine) ([]*Product, error) {
	products, err := s.repo.Reserve(ctx, lines)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		s.announce(p)
	}
	return products, nil
}

func (s *Service) announce(p *Product) {
	if s.publish == nil {
		return
	}
	event := events.StockUpdatedEvent{
		ProductID: p.ID,
		Stock:     p.Stock,
		Revision:  p.Revision,
		Timestamp: time.Now(),
	}
	if err := s.publish(event); err != nil {
		log.Printf("[catalog] Failed to publish StockUpdated for %s: %v", p.ID, err)
	}
}
