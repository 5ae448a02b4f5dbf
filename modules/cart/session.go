package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientStock is returned by CanAdd when the known stock cannot cover the request.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInactiveProduct is returned by CanAdd for products that are not for sale.
	ErrInactiveProduct = errors.New("product is not active")
	// ErrInvalidSessionID is returned for empty session ids.
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrSessionNotFound is returned when a session is not open.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSnapshotUnavailable is returned when a session's snapshot cannot be read.
	ErrSnapshotUnavailable = errors.New("cart snapshot unavailable")
)

// SnapshotStore persists cart state per session. LoadState fails only when
// the backing store cannot be read.
type SnapshotStore interface {
	LoadState(ctx context.Context, sessionID string) (domain.State, error)
	Save(ctx context.Context, sessionID string, state domain.State)
	Delete(ctx context.Context, sessionID string)
}

// Session owns one cart. Every operation runs the reducer and writes the
// result through to the snapshot store before returning.
type Session struct {
	id    string
	store SnapshotStore

	mu       sync.Mutex
	state    domain.State
	lastUsed time.Time
}

// NewSession creates a session around an initial state.
func NewSession(id string, initial domain.State, store SnapshotStore) *Session {
	return &Session{
		id:       id,
		store:    store,
		state:    initial.Clone(),
		lastUsed: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Dispatch applies an action and persists the resulting state.
func (s *Session) Dispatch(ctx context.Context, a domain.Action) domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.Reduce(s.state, a)
	s.lastUsed = time.Now()
	s.store.Save(ctx, s.id, s.state)
	return s.state.Clone()
}

func (s *Session) AddToCart(ctx context.Context, p domain.Product, quantity int) domain.State {
	return s.Dispatch(ctx, domain.AddItem{Product: p, Quantity: quantity})
}

func (s *Session) RemoveFromCart(ctx context.Context, productID string) domain.State {
	return s.Dispatch(ctx, domain.RemoveItem{ProductID: productID})
}

func (s *Session) UpdateQuantity(ctx context.Context, productID string, quantity int) domain.State {
	return s.Dispatch(ctx, domain.UpdateQuantity{ProductID: productID, Quantity: quantity})
}

func (s *Session) UpdateProductStock(ctx context.Context, productID string, stock int) domain.State {
	return s.Dispatch(ctx, domain.UpdateProductStock{ProductID: productID, Stock: stock})
}

func (s *Session) ToggleCart(ctx context.Context) domain.State {
	return s.Dispatch(ctx, domain.ToggleOpen{})
}

func (s *Session) OpenCart(ctx context.Context) domain.State {
	return s.Dispatch(ctx, domain.OpenPanel{})
}

func (s *Session) CloseCart(ctx context.Context) domain.State {
	return s.Dispatch(ctx, domain.CloseOpen{})
}

func (s *Session) ClearCart(ctx context.Context) domain.State {
	return s.Dispatch(ctx, domain.Clear{})
}

// State returns a copy of the current state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Total is recomputed from the current lines on every call.
func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total()
}

// ItemsCount is the sum of quantities in the cart.
func (s *Session) ItemsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemsCount()
}

// ProductQuantity returns how many units of productID are in the cart.
func (s *Session) ProductQuantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Quantity(productID)
}

// CanAdd reports whether quantity more units of p fit under its known stock.
// It is advisory: the reducer accepts any quantity.
func (s *Session) CanAdd(p domain.Product, quantity int) error {
	if !p.Active {
		return ErrInactiveProduct
	}
	if quantity <= 0 {
		quantity = 1
	}

	s.mu.Lock()
	remaining := s.state.Remaining(p)
	s.mu.Unlock()

	if quantity > remaining {
		return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientStock, quantity, remaining)
	}
	return nil
}

// Remaining returns how many more units of p can be added.
func (s *Session) Remaining(p domain.Product) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Remaining(p)
}

// Flush rewrites the current state to the snapshot store.
func (s *Session) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Save(ctx, s.id, s.state)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
