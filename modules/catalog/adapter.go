package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CatalogPort defines the catalog operations available to other modules.
type CatalogPort interface {
	List(ctx context.Context, includeInactive bool) ([]cart.Product, error)
	Get(ctx context.Context, id string) (*cart.Product, error)
	SetStock(ctx context.Context, id string, stock int) (*cart.Product, error)
	Reserve(ctx context.Context, lines []ReserveLine) ([]cart.Product, error)
}

// CatalogAdapter implements CatalogPort using the service container.
type CatalogAdapter struct {
	container mono.ServiceContainer
}

// NewCatalogAdapter creates a new CatalogAdapter.
func NewCatalogAdapter(container mono.ServiceContainer) CatalogPort {
	if container == nil {
		panic("catalog: ServiceContainer is nil")
	}
	return &CatalogAdapter{container: container}
}

// List returns the catalog.
func (a *CatalogAdapter) List(ctx context.Context, includeInactive bool) ([]cart.Product, error) {
	req := ListRequest{IncludeInactive: includeInactive}
	var resp ListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceList,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return resp.Products, nil
}

// Get returns one product.
func (a *CatalogAdapter) Get(ctx context.Context, id string) (*cart.Product, error) {
	req := GetRequest{ID: id}
	var resp ProductResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGet,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return productFromResponse(&resp)
}

// SetStock replaces a product's stock.
func (a *CatalogAdapter) SetStock(ctx context.Context, id string, stock int) (*cart.Product, error) {
	req := SetStockRequest{ID: id, Stock: stock}
	var resp ProductResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSetStock,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}
	return productFromResponse(&resp)
}

// Reserve takes stock for an order. Shortages come back as *ShortageError.
func (a *CatalogAdapter) Reserve(ctx context.Context, lines []ReserveLine) ([]cart.Product, error) {
	req := ReserveRequest{Lines: lines}
	var resp ReserveResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceReserve,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	switch resp.Error {
	case "":
		return resp.Products, nil
	case CodeInsufficientStock:
		return nil, &ShortageError{Shortages: resp.Shortages}
	case CodeInvalidQuantity:
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, resp.Message)
	default:
		return nil, fmt.Errorf("catalog: %s", resp.Error)
	}
}

func productFromResponse(resp *ProductResponse) (*cart.Product, error) {
	switch resp.Error {
	case "":
	case CodeNotFound:
		return nil, ErrNotFound
	case CodeInvalidStock:
		return nil, ErrInvalidStock
	default:
		return nil, fmt.Errorf("catalog: %s", resp.Error)
	}
	if resp.Product == nil {
		return nil, ErrNotFound
	}
	return resp.Product, nil
}
