package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/example/storefront-cart/events"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

// codeAlphabet leaves out characters that are easy to misread.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// ErrInvalidOrder is wrapped by every validation failure.
var ErrInvalidOrder = errors.New("invalid order")

// ValidationError names the fields a request got wrong.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// StockReserver takes stock for the lines of an order.
type StockReserver interface {
	Reserve(ctx context.Context, lines []catalog.ReserveLine) ([]cart.Product, error)
}

// Publisher emits order events.
type Publisher func(events.OrderPlacedEvent) error

// Service places, looks up and administers orders.
type Service struct {
	repo    *Repository
	stock   StockReserver
	publish Publisher
	newCode func() string
}

// NewService creates a new order service.
func NewService(repo *Repository, stock StockReserver, publish Publisher) (*Service, error) {
	gen, err := nanoid.CustomASCII(codeAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to create order code generator: %w", err)
	}
	return &Service{
		repo:    repo,
		stock:   stock,
		publish: publish,
		newCode: func() string { return "ORD-" + gen() },
	}, nil
}

// Place validates a checkout, reserves its stock and persists the order.
// Shortages come back as *catalog.ShortageError.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	lines := mergeLines(req.Lines)
	reserve := make([]catalog.ReserveLine, len(lines))
	for i, l := range lines {
		reserve[i] = catalog.ReserveLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}

	reserved, err := s.stock.Reserve(ctx, reserve)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]cart.Product, len(reserved))
	for _, p := range reserved {
		byID[p.ID] = p
	}

	o := &Order{
		ID:            uuid.New().String(),
		Code:          s.newCode(),
		SessionID:     req.SessionID,
		BuyerName:     strings.TrimSpace(req.Buyer.Name),
		BuyerEmail:    strings.TrimSpace(req.Buyer.Email),
		Address:       strings.TrimSpace(req.Buyer.Address),
		Phone:         strings.TrimSpace(req.Buyer.Phone),
		PaymentMethod: req.PaymentMethod,
		Origin:        req.Origin,
		Status:        StatusPending,
		Total:         decimal.Zero,
	}
	for _, l := range lines {
		item := Item{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
		if p, ok := byID[l.ProductID]; ok {
			item.Name = p.Name
			item.UnitPrice = p.Price
		}
		o.Items = append(o.Items, item)
		o.Total = o.Total.Add(item.Subtotal())
	}

	if err := s.repo.Create(ctx, o); err != nil {
		// Stock is already taken at this point.
		log.Printf("[order] Failed to persist order %s after reserving stock: %v", o.Code, err)
		return nil, err
	}

	if s.publish != nil {
		event := events.OrderPlacedEvent{
			OrderCode:  o.Code,
			SessionID:  o.SessionID,
			BuyerEmail: o.BuyerEmail,
			Total:      o.Total.StringFixed(2),
			ItemCount:  o.ItemCount(),
			Timestamp:  time.Now(),
		}
		if err := s.publish(event); err != nil {
			log.Printf("[order] Failed to publish OrderPlaced for %s: %v", o.Code, err)
		}
	}

	log.Printf("[order] Placed order %s (%d items, total %s)", o.Code, o.ItemCount(), o.Total.StringFixed(2))
	return o, nil
}

// Get returns the order with the given code.
func (s *Service) Get(ctx context.Context, code string) (*Order, error) {
	return s.repo.FindByCode(ctx, code)
}

// List returns the orders matching filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("status %q is not supported", filter.Status)}}
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves an order to status. Cancelled orders keep their status.
func (s *Service) UpdateStatus(ctx context.Context, code, status string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("status %q is not supported", status)}}
	}
	o, err := s.repo.UpdateStatus(ctx, code, status)
	if err != nil {
		return nil, err
	}
	log.Printf("[order] Order %s is now %s", o.Code, o.Status)
	return o, nil
}

// validate checks a request and fills defaults.
func validate(req *PlaceRequest) error {
	var problems []string

	required := []struct{ field, value string }{
		{"buyer.name", req.Buyer.Name},
		{"buyer.email", req.Buyer.Email},
		{"buyer.address", req.Buyer.Address},
		{"buyer.phone", req.Buyer.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.field+" is required")
		}
	}
	if email := strings.TrimSpace(req.Buyer.Email); email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			problems = append(problems, "buyer.email is not a valid address")
		}
	}

	switch req.PaymentMethod {
	case PaymentTransfer, PaymentCash, PaymentCard:
	default:
		problems = append(problems, fmt.Sprintf("payment_method %q is not supported", req.PaymentMethod))
	}

	if req.Origin == "" {
		req.Origin = DefaultOrigin
	}

	if len(req.Lines) == 0 {
		problems = append(problems, "at least one line is required")
	}
	for i, l := range req.Lines {
		if l.ProductID == "" {
			problems = append(problems, fmt.Sprintf("lines[%d].product_id is required", i))
		}
		if l.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("lines[%d].quantity must be at least 1", i))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// mergeLines sums repeated products, keeping the first unit price seen.
func mergeLines(lines []LineRequest) []LineRequest {
	index := make(map[string]int, len(lines))
	merged := make([]LineRequest, 0, len(lines))
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
