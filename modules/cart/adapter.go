package cart

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CartPort defines the cart operations available to other modules.
type CartPort interface {
	Get(ctx context.Context, sessionID string) (*CartResponse, error)
	Add(ctx context.Context, sessionID string, p domain.Product, quantity int, checkStock bool) (*CartResponse, error)
	Remove(ctx context.Context, sessionID, productID string) (*CartResponse, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartResponse, error)
	Toggle(ctx context.Context, sessionID string) (*CartResponse, error)
	Open(ctx context.Context, sessionID string) (*CartResponse, error)
	Close(ctx context.Context, sessionID string) (*CartResponse, error)
	Clear(ctx context.Context, sessionID string) (*CartResponse, error)
	Reset(ctx context.Context, sessionID string) (*CartResponse, error)
}

// CartAdapter implements CartPort using the service container.
type CartAdapter struct {
	container mono.ServiceContainer
}

// NewCartAdapter creates a new CartAdapter.
func NewCartAdapter(container mono.ServiceContainer) CartPort {
	if container == nil {
		panic("cart: ServiceContainer is nil")
	}
	return &CartAdapter{container: container}
}

// ResponseError turns a domain failure carried in a response into an error.
func ResponseError(resp *CartResponse) error {
	switch resp.Error {
	case "":
		return nil
	case CodeInsufficientStock:
		return fmt.Errorf("%w: %s", ErrInsufficientStock, resp.Message)
	case CodeInactiveProduct:
		return ErrInactiveProduct
	case CodeInvalidSession:
		return ErrInvalidSessionID
	case CodeUnavailable:
		return fmt.Errorf("%w: %s", ErrSnapshotUnavailable, resp.Message)
	default:
		return fmt.Errorf("cart: %s", resp.Message)
	}
}

func (a *CartAdapter) call(ctx context.Context, service string, req any) (*CartResponse, error) {
	var resp CartResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to call cart %s: %w", service, err)
	}
	return &resp, nil
}

func (a *CartAdapter) Get(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceGet, &SessionRequest{SessionID: sessionID})
}

func (a *CartAdapter) Add(ctx context.Context, sessionID string, p domain.Product, quantity int, checkStock bool) (*CartResponse, error) {
	return a.call(ctx, ServiceAdd, &AddRequest{
		SessionID:  sessionID,
		Product:    p,
		Quantity:   quantity,
		CheckStock: checkStock,
	})
}

func (a *CartAdapter) Remove(ctx context.Context, sessionID, productID string) (*CartResponse, error) {
	return a.call(ctx, ServiceRemove, &ItemRequest{SessionID: sessionID, ProductID: productID})
}

func (a *CartAdapter) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartResponse, error) {
	return a.call(ctx, ServiceUpdateQuantity, &ItemRequest{
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (a *CartAdapter) Toggle(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceToggle, &SessionRequest{SessionID: sessionID})
}

func (a *CartAdapter) Open(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceOpen, &SessionRequest{SessionID: sessionID})
}

func (a *CartAdapter) Close(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceClose, &SessionRequest{SessionID: sessionID})
}

func (a *CartAdapter) Clear(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceClear, &SessionRequest{SessionID: sessionID})
}

func (a *CartAdapter) Reset(ctx context.Context, sessionID string) (*CartResponse, error) {
	return a.call(ctx, ServiceReset, &SessionRequest{SessionID: sessionID})
}
